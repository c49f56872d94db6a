package persistence

import (
	"context"
	"testing"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormQueueMetricsProvider_WaitingCounts(t *testing.T) {
	db := newSQLiteDB(t)
	fx := seedClinic(t, db)
	repo := NewGormServiceOrderRepository(db)
	ctx := context.Background()
	today := dayOf(fixtureNow)

	enqueueStored(t, repo, paidOrder(t, repo, fx, fx.labTest, fx.labDept), today)
	enqueueStored(t, repo, paidOrder(t, repo, fx, fx.labTest, fx.labDept), today)
	started := paidOrder(t, repo, fx, fx.labTest, fx.labDept)
	enqueueStored(t, repo, started, today)
	require.NoError(t, started.StartService(nil, fixtureNow))
	require.NoError(t, repo.Update(ctx, started))

	enqueueStored(t, repo, paidOrder(t, repo, fx, fx.xray, fx.xrayDept), today)
	enqueueStored(t, repo, paidOrder(t, repo, fx, fx.xray, fx.xrayDept), dayOf(fixtureNow.AddDate(0, 0, -1)))

	provider := NewGormQueueMetricsProvider(db, shared.NewManualClock(fixtureNow))
	counts, err := provider.WaitingCounts(ctx)
	require.NoError(t, err)

	got := map[string]int64{}
	for _, c := range counts {
		assert.Equal(t, fx.tenantID, c.TenantID)
		got[c.DepartmentID.String()] = c.Waiting
	}
	assert.Equal(t, map[string]int64{
		fx.labDept.String():  2,
		fx.xrayDept.String(): 1,
	}, got)
}
