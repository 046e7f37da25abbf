package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medibox-api/internal/domain"
)

// BoxRepo provides typed DynamoDB operations for the medicine-box table.
// Medicines are stored inline as a list attribute on the box item, so a box
// write always persists the full medicine set (composition).
type BoxRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewBoxRepo(client *dynamodb.Client, tableName string) *BoxRepo {
	return &BoxRepo{client: client, tableName: tableName}
}

func (r *BoxRepo) Put(ctx context.Context, b *domain.MedicineBox) error {
	item, err := attributevalue.MarshalMap(b)
	if err != nil {
		return fmt.Errorf("marshal box: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *BoxRepo) Get(ctx context.Context, boxID string) (*domain.MedicineBox, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("box_id", boxID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("box not found: %w", domain.ErrNotFound)
	}
	var b domain.MedicineBox
	if err := attributevalue.UnmarshalMap(out.Item, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByHardwareID looks a box up by its stable device identifier via GSI.
func (r *BoxRepo) GetByHardwareID(ctx context.Context, hardwareID string) (*domain.MedicineBox, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("hardware_id-index"),
		KeyConditionExpression: aws.String("hardware_id = :h"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":h": &types.AttributeValueMemberS{Value: hardwareID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("box not found: %w", domain.ErrNotFound)
	}
	var b domain.MedicineBox
	if err := attributevalue.UnmarshalMap(out.Items[0], &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BoxRepo) ListByUser(ctx context.Context, userID string) ([]domain.MedicineBox, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var boxes []domain.MedicineBox
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &boxes); err != nil {
		return nil, err
	}
	return boxes, nil
}

// Scan returns every box with its nested medicines. The alert engine reads
// the full snapshot on each pass; box counts are small (one per household
// device), so a paginated scan is acceptable here.
func (r *BoxRepo) Scan(ctx context.Context) ([]domain.MedicineBox, error) {
	var boxes []domain.MedicineBox
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.MedicineBox
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		boxes = append(boxes, page...)
		if out.LastEvaluatedKey == nil {
			return boxes, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (r *BoxRepo) Update(ctx context.Context, boxID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("box_id", boxID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// SaveMedicines replaces the box's full medicine list in one write.
func (r *BoxRepo) SaveMedicines(ctx context.Context, boxID string, medicines []domain.Medicine) error {
	if medicines == nil {
		medicines = []domain.Medicine{}
	}
	return r.Update(ctx, boxID, map[string]interface{}{fieldMedicines: medicines})
}

// Delete removes the box item and, with it, every nested medicine.
func (r *BoxRepo) Delete(ctx context.Context, boxID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("box_id", boxID),
	})
	return err
}
