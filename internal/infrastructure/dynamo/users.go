package dynamo

import (
	"context"
	"fmt"

	"github.com/univio-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users mirror table.
type UserRepo struct {
	client    API
	tableName string
}

func NewUserRepo(client API, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

// CreateIfAbsent writes the mirror row unless one already exists for the user.
func (r *UserRepo) CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	return putIfAbsent(ctx, r.client, r.tableName, fieldUserID, u)
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	found, err := getItem(ctx, r.client, r.tableName, strKey(fieldUserID, userID), &u)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return &u, nil
}
