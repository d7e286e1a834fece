package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/univio-api/internal/domain"
)

// ProfileRepo stores one academic profile per user. PK: user_id.
type ProfileRepo struct {
	client    API
	tableName string
}

func NewProfileRepo(client API, tableName string) *ProfileRepo {
	return &ProfileRepo{client: client, tableName: tableName}
}

// Get returns (nil, nil) when the user has no profile.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (*domain.AcademicProfile, error) {
	var p domain.AcademicProfile
	found, err := getItem(ctx, r.client, r.tableName, strKey(fieldUserID, userID), &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) CreateIfAbsent(ctx context.Context, p *domain.AcademicProfile) (bool, error) {
	return putIfAbsent(ctx, r.client, r.tableName, fieldUserID, p)
}

// Upsert replaces the profile, keeping created_at of an existing row.
// It reports whether a new row was created.
func (r *ProfileRepo) Upsert(ctx context.Context, p *domain.AcademicProfile) (bool, error) {
	existing, err := r.Get(ctx, p.UserID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		p.CreatedAt = existing.CreatedAt
	}
	p.UpdatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return false, fmt.Errorf("marshal profile: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return false, fmt.Errorf("put profile: %w", err)
	}
	return existing == nil, nil
}
