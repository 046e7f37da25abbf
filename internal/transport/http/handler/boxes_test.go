package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medibox-api/internal/application/box"
	"github.com/medibox-api/internal/config"
	"github.com/medibox-api/internal/domain"
	"github.com/medibox-api/internal/infrastructure/devicebox"
	jwtinfra "github.com/medibox-api/internal/infrastructure/jwt"
	"github.com/medibox-api/internal/transport/http/middleware"
)

// --- mock ---

type mockBoxSvc struct{ mock.Mock }

var _ box.Service = (*mockBoxSvc)(nil)

func (m *mockBoxSvc) Create(ctx context.Context, userID string, req domain.CreateBoxRequest) (*domain.MedicineBox, error) {
	args := m.Called(ctx, userID, req)
	if b, _ := args.Get(0).(*domain.MedicineBox); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBoxSvc) List(ctx context.Context, userID string) ([]domain.MedicineBox, error) {
	args := m.Called(ctx, userID)
	if bs, _ := args.Get(0).([]domain.MedicineBox); bs != nil {
		return bs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBoxSvc) Get(ctx context.Context, boxID, userID string) (*domain.MedicineBox, error) {
	args := m.Called(ctx, boxID, userID)
	if b, _ := args.Get(0).(*domain.MedicineBox); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBoxSvc) Update(ctx context.Context, boxID, userID string, req domain.UpdateBoxRequest) (*domain.MedicineBox, error) {
	args := m.Called(ctx, boxID, userID, req)
	if b, _ := args.Get(0).(*domain.MedicineBox); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBoxSvc) Delete(ctx context.Context, boxID, userID string) error {
	return m.Called(ctx, boxID, userID).Error(0)
}

func (m *mockBoxSvc) Connect(ctx context.Context, boxID, userID string) (devicebox.Result, error) {
	args := m.Called(ctx, boxID, userID)
	return args.Get(0).(devicebox.Result), args.Error(1)
}

func (m *mockBoxSvc) Sync(ctx context.Context, boxID, userID string) (devicebox.Result, error) {
	args := m.Called(ctx, boxID, userID)
	return args.Get(0).(devicebox.Result), args.Error(1)
}

func (m *mockBoxSvc) Disconnect(ctx context.Context, boxID, userID string) (devicebox.Result, error) {
	args := m.Called(ctx, boxID, userID)
	return args.Get(0).(devicebox.Result), args.Error(1)
}

func (m *mockBoxSvc) Status(ctx context.Context, boxID, userID string) (json.RawMessage, devicebox.Result, error) {
	args := m.Called(ctx, boxID, userID)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Get(1).(devicebox.Result), args.Error(2)
}

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

// bearerReq builds a request with a signed Bearer token for the given userID.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID string, body []byte) *http.Request {
	t.Helper()
	token, err := p.Sign(userID, "sess1")
	require.NoError(t, err)
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// withChiParam injects a chi URL param into the request context.
func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.Handler, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

// --- Create tests ---

func TestBoxCreate_MissingClaims(t *testing.T) {
	h := NewBoxHandler(&mockBoxSvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/boxes", bytes.NewBufferString("{}"))
	rr := httptest.NewRecorder()
	h.Create(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBoxCreate_ValidationFailure(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewBoxHandler(&mockBoxSvc{})
	body, _ := json.Marshal(domain.CreateBoxRequest{Name: "Kitchen", HardwareID: "esp32-abc", IPAddress: "not-an-ip"})

	r := bearerReq(t, p, http.MethodPost, "/v1/boxes", "u1", body)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Create), rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBoxCreate_Conflict(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockBoxSvc{}
	svc.On("Create", mock.Anything, "u1", mock.Anything).Return(nil, domain.ErrConflict)
	h := NewBoxHandler(svc)
	body, _ := json.Marshal(domain.CreateBoxRequest{Name: "Kitchen", HardwareID: "esp32-abc", IPAddress: "192.168.1.50"})

	r := bearerReq(t, p, http.MethodPost, "/v1/boxes", "u1", body)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Create), rr, r)

	assert.Equal(t, http.StatusConflict, rr.Code)
	svc.AssertExpectations(t)
}

func TestBoxCreate_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockBoxSvc{}
	created := &domain.MedicineBox{BoxID: "b1", Name: "Kitchen", HardwareID: "esp32-abc", UserID: "u1"}
	svc.On("Create", mock.Anything, "u1", mock.Anything).Return(created, nil)
	h := NewBoxHandler(svc)
	body, _ := json.Marshal(domain.CreateBoxRequest{Name: "Kitchen", HardwareID: "esp32-abc", IPAddress: "192.168.1.50"})

	r := bearerReq(t, p, http.MethodPost, "/v1/boxes", "u1", body)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Create), rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp domain.MedicineBox
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "b1", resp.BoxID)
	svc.AssertExpectations(t)
}

// --- Get / Delete tests ---

func TestBoxGet_Forbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockBoxSvc{}
	svc.On("Get", mock.Anything, "b1", "u1").Return(nil, domain.ErrForbidden)
	h := NewBoxHandler(svc)

	r := withChiParam(bearerReq(t, p, http.MethodGet, "/v1/boxes/b1", "u1", nil), "boxID", "b1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Get), rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestBoxDelete_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockBoxSvc{}
	svc.On("Delete", mock.Anything, "b1", "u1").Return(nil)
	h := NewBoxHandler(svc)

	r := withChiParam(bearerReq(t, p, http.MethodDelete, "/v1/boxes/b1", "u1", nil), "boxID", "b1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Delete), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

// --- Device operation tests ---

func TestBoxConnect_DeviceFailureIsStillHTTP200(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockBoxSvc{}
	svc.On("Connect", mock.Anything, "b1", "u1").Return(devicebox.Result{Success: false, Message: "device unreachable"}, nil)
	h := NewBoxHandler(svc)

	r := withChiParam(bearerReq(t, p, http.MethodPost, "/v1/boxes/b1/connect", "u1", nil), "boxID", "b1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Connect), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp DeviceEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "device unreachable", resp.Message)
}

func TestBoxSync_UnknownBox(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockBoxSvc{}
	svc.On("Sync", mock.Anything, "nope", "u1").Return(devicebox.Result{}, domain.ErrNotFound)
	h := NewBoxHandler(svc)

	r := withChiParam(bearerReq(t, p, http.MethodPost, "/v1/boxes/nope/sync", "u1", nil), "boxID", "nope")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Sync), rr, r)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBoxStatus_PassesPayloadThrough(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockBoxSvc{}
	payload := json.RawMessage(`{"battery":87}`)
	svc.On("Status", mock.Anything, "b1", "u1").Return(payload, devicebox.Result{Success: true}, nil)
	h := NewBoxHandler(svc)

	r := withChiParam(bearerReq(t, p, http.MethodGet, "/v1/boxes/b1/status", "u1", nil), "boxID", "b1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Status), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp DeviceEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.JSONEq(t, `{"battery":87}`, string(resp.Data))
}
