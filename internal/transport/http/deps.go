package http

import (
	"github.com/medibox-api/internal/infrastructure/devicebox"
	"github.com/medibox-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/medibox-api/internal/infrastructure/jwt"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo     *dynamo.UserRepo
	SessionRepo  *dynamo.SessionRepo
	BoxRepo      *dynamo.BoxRepo
	AlertRepo    *dynamo.AlertRepo
	DeviceClient *devicebox.Client
	JWTProvider  *jwtinfra.Provider
}
