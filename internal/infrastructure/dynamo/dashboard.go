package dynamo

import (
	"context"

	"github.com/univio-api/internal/domain"
)

// DashboardRepo stores per-user dashboard metrics. PK: user_id.
// Rows are only ever created here; recalculation happens elsewhere.
type DashboardRepo struct {
	client    API
	tableName string
}

func NewDashboardRepo(client API, tableName string) *DashboardRepo {
	return &DashboardRepo{client: client, tableName: tableName}
}

// Ensure creates the metrics row if missing and never overwrites an existing one.
func (r *DashboardRepo) Ensure(ctx context.Context, m *domain.DashboardMetrics) (bool, error) {
	return putIfAbsent(ctx, r.client, r.tableName, fieldUserID, m)
}

// Get returns (nil, nil) when no metrics exist yet.
func (r *DashboardRepo) Get(ctx context.Context, userID string) (*domain.DashboardMetrics, error) {
	var m domain.DashboardMetrics
	found, err := getItem(ctx, r.client, r.tableName, strKey(fieldUserID, userID), &m)
	if err != nil || !found {
		return nil, err
	}
	return &m, nil
}
