package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

// testClient starts an in-process Redis server for the test.
func testClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fsm:state:42", stateKey("42"))
	assert.Equal(t, "fsm:data:42:from_sura", dataKey("42", domain.SessionKeyFromSura))
	assert.Equal(t, "report:42:01J", reportKey("42", "01J"))
	assert.Equal(t, "report:index:42", indexKey("42"))
}

func TestConnect_BadURI(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), "not a uri")
	assert.Error(t, err)
}

func TestFSM(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, mr := testClient(t)
	fsm := NewFSM(client)

	state, err := fsm.GetState(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateStart, state)

	require.NoError(t, fsm.SetState(ctx, "1", domain.StateReciting))
	assert.Equal(t, defaultTTL, mr.TTL(stateKey("1")))
	state, err = fsm.GetState(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateReciting, state)

	require.NoError(t, fsm.SetData(ctx, "1", domain.SessionKeyFromSura, "2"))
	v, err := fsm.GetData(ctx, "1", domain.SessionKeyFromSura)
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	require.NoError(t, fsm.DeleteData(ctx, "1", domain.SessionKeyFromSura))
	_, err = fsm.GetData(ctx, "1", domain.SessionKeyFromSura)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, fsm.DeleteState(ctx, "1"))
	state, err = fsm.GetState(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateStart, state)
}

func TestReportStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, mr := testClient(t)
	store := NewReportStore(client, time.Hour, 3)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		r := domain.NewFinalReport([]domain.WordStatus{domain.StatusCorrect, domain.StatusIncorrect})
		r.ID = fmt.Sprintf("r%d", i)
		r.UserID = "7"
		r.From = domain.Position{Sura: 1, Aya: 1}
		r.To = domain.Position{Sura: 1, Aya: 7}
		r.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.SaveReport(ctx, r))
	}

	got, err := store.GetReport(ctx, "7", "r4")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Reached)
	assert.InDelta(t, 0.5, got.Ratio, 1e-9)
	assert.True(t, got.StartedAt.Equal(base.Add(4*time.Minute)))

	_, err = store.GetReport(ctx, "7", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := store.ListReports(ctx, "7", 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "r4", list[0].ID)
	assert.Equal(t, "r2", list[2].ID)

	ids, err := mr.List(indexKey("7"))
	require.NoError(t, err)
	assert.Equal(t, []string{"r4", "r3", "r2"}, ids, "index is trimmed to the limit")
	assert.Equal(t, time.Hour, mr.TTL(reportKey("7", "r4")))
	assert.Equal(t, time.Hour, mr.TTL(indexKey("7")))

	empty, err := store.ListReports(ctx, "8", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReportStore_SkipsExpiredReports(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, mr := testClient(t)
	store := NewReportStore(client, time.Hour, 10)

	save := func(id string) {
		r := domain.NewFinalReport([]domain.WordStatus{domain.StatusCorrect})
		r.ID = id
		r.UserID = "7"
		require.NoError(t, store.SaveReport(ctx, r))
	}

	save("old")
	mr.FastForward(30 * time.Minute)
	save("new")
	mr.FastForward(45 * time.Minute)

	ids, err := mr.List(indexKey("7"))
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids, "index still holds the expired id")

	list, err := store.ListReports(ctx, "7", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].ID)

	_, err = store.GetReport(ctx, "7", "old")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReportStore_RequiresIDs(t *testing.T) {
	t.Parallel()

	store := NewReportStore(nil, 0, 0)
	assert.Equal(t, DefaultReportTTL, store.ttl)
	assert.Equal(t, DefaultReportLimit, store.limit)

	err := store.SaveReport(context.Background(), domain.FinalReport{ID: "x"})
	assert.Error(t, err)
}
