package cache

import (
	"context"
	"testing"
	"time"

	appqueue "github.com/clinic/backend/internal/application/queue"
	"github.com/clinic/backend/internal/domain/clinical"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBoard(deptID uuid.UUID) *appqueue.Board {
	entry := appqueue.BoardEntry{
		ServiceOrderID: uuid.New(),
		PatientID:      uuid.New(),
		QueueNumber:    3,
		QueueStatus:    "IN_PROGRESS",
		DisplayLabel:   appqueue.DisplayLabel(3, "Laboratory"),
	}
	return &appqueue.Board{
		DepartmentID:   deptID,
		DepartmentName: "Laboratory",
		Day:            "2026-03-14",
		Waiting: []appqueue.BoardEntry{
			{ServiceOrderID: uuid.New(), QueueNumber: 4, QueueStatus: "WAITING"},
		},
		InProgress:    &entry,
		AllInProgress: []appqueue.BoardEntry{entry},
		Counts:        clinical.QueueCounts{Waiting: 1, InProgress: 1, Completed: 2},
	}
}

func TestInMemoryBoardCache_GetSetInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryBoardCache(time.Minute)
	key := appqueue.BoardKey{TenantID: uuid.New(), DepartmentID: uuid.New(), Day: "2026-03-14"}

	got, gen, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "miss returns nil board")
	assert.Zero(t, gen)

	board := sampleBoard(key.DepartmentID)
	require.NoError(t, cache.Set(ctx, key, board, gen))

	got, _, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, board, got)

	require.NoError(t, cache.Invalidate(ctx, key))
	got, gen, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, uint64(1), gen)
}

func TestInMemoryBoardCache_StaleBoardIsNotWrittenBack(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryBoardCache(time.Minute)
	key := appqueue.BoardKey{TenantID: uuid.New(), DepartmentID: uuid.New(), Day: "2026-03-14"}

	// a reader misses and loads the board from the database
	_, gen, err := cache.Get(ctx, key)
	require.NoError(t, err)
	stale := sampleBoard(key.DepartmentID)

	// a transition commits and invalidates before the reader writes back
	require.NoError(t, cache.Invalidate(ctx, key))

	require.NoError(t, cache.Set(ctx, key, stale, gen))
	got, current, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "board loaded before the invalidation stays out of the cache")

	fresh := sampleBoard(key.DepartmentID)
	require.NoError(t, cache.Set(ctx, key, fresh, current))
	got, _, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
}

func TestInMemoryBoardCache_KeysAreScopedByTenantAndDay(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryBoardCache(time.Minute)

	dept := uuid.New()
	key := appqueue.BoardKey{TenantID: uuid.New(), DepartmentID: dept, Day: "2026-03-14"}
	require.NoError(t, cache.Set(ctx, key, sampleBoard(dept), 0))

	otherTenant := appqueue.BoardKey{TenantID: uuid.New(), DepartmentID: dept, Day: key.Day}
	otherDay := appqueue.BoardKey{TenantID: key.TenantID, DepartmentID: dept, Day: "2026-03-15"}

	for _, k := range []appqueue.BoardKey{otherTenant, otherDay} {
		got, _, err := cache.Get(ctx, k)
		require.NoError(t, err)
		assert.Nil(t, got, k.String())
	}
}

func TestInMemoryBoardCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := shared.NewManualClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	cache := NewInMemoryBoardCache(5*time.Second, WithClock(clock))
	key := appqueue.BoardKey{TenantID: uuid.New(), DepartmentID: uuid.New(), Day: "2026-03-14"}

	require.NoError(t, cache.Set(ctx, key, sampleBoard(key.DepartmentID), 0))

	clock.Advance(4 * time.Second)
	got, _, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, got)

	clock.Advance(time.Second)
	got, _, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	// expired entries are swept on the next write
	other := appqueue.BoardKey{TenantID: key.TenantID, DepartmentID: uuid.New(), Day: key.Day}
	require.NoError(t, cache.Set(ctx, other, sampleBoard(other.DepartmentID), 0))
	assert.Equal(t, 1, cache.Len())
}

func TestInMemoryBoardCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryBoardCache(time.Minute)
	key := appqueue.BoardKey{TenantID: uuid.New(), DepartmentID: uuid.New(), Day: "2026-03-14"}

	board := sampleBoard(key.DepartmentID)
	require.NoError(t, cache.Set(ctx, key, board, 0))

	board.Waiting[0].QueueNumber = 99
	board.InProgress.QueueNumber = 99

	got, _, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Waiting[0].QueueNumber)
	assert.Equal(t, 3, got.InProgress.QueueNumber)

	got.Waiting = nil
	again, _, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Len(t, again.Waiting, 1)
}

func TestInMemoryBoardCache_DroppedByInvalidationHandler(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryBoardCache(time.Minute)
	tenant, dept := uuid.New(), uuid.New()
	key := appqueue.BoardKey{TenantID: tenant, DepartmentID: dept, Day: "2026-03-14"}
	require.NoError(t, cache.Set(ctx, key, sampleBoard(dept), 0))

	handler := appqueue.NewBoardInvalidationHandler(cache, nil)
	event := &clinical.QueueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(clinical.EventTypeServiceStarted,
			clinical.AggregateTypeServiceOrder, uuid.New(), tenant, time.Now()),
		DepartmentID: dept,
		QueueDate:    key.Day,
	}
	require.NoError(t, handler.Handle(ctx, event))

	got, _, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}
