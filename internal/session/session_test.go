package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(maxSessions int) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := NewStore(config.SessionConfig{
		TTL:           time.Hour,
		MaxSessions:   maxSessions,
		SweepInterval: time.Minute,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = clock.Now
	return s, clock
}

func dataset(id string) *models.Dataset {
	return &models.Dataset{
		Transactions: []models.Transaction{{TransactionID: id, TotalPrice: decimal.NewFromInt(1)}},
	}
}

func TestStore_PutGet(t *testing.T) {
	s, _ := newTestStore(10)

	sess := s.Put("", dataset("T1"), "ventes.xlsx")
	require.NotEmpty(t, sess.ID)

	got, ok := s.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, "ventes.xlsx", got.FileName)
	assert.Equal(t, "T1", got.Dataset.Transactions[0].TransactionID)

	_, ok = s.Get("unknown")
	assert.False(t, ok)
}

func TestStore_PutOwnsCopy(t *testing.T) {
	s, _ := newTestStore(10)

	ds := dataset("T1")
	sess := s.Put("", ds, "a.xlsx")
	ds.Transactions[0].TransactionID = "changed"

	got, ok := s.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, "T1", got.Dataset.Transactions[0].TransactionID)
}

func TestStore_ReplaceDiscardsPrevious(t *testing.T) {
	s, _ := newTestStore(10)

	first := s.Put("", dataset("T1"), "a.xlsx")
	second := s.Put(first.ID, dataset("T2"), "b.xlsx")

	assert.NotEqual(t, first.ID, second.ID)
	_, ok := s.Get(first.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestStore_TTL(t *testing.T) {
	s, clock := newTestStore(10)
	sess := s.Put("", dataset("T1"), "a.xlsx")

	clock.Advance(50 * time.Minute)
	_, ok := s.Get(sess.ID)
	require.True(t, ok, "access within the TTL extends the session")

	clock.Advance(50 * time.Minute)
	_, ok = s.Get(sess.ID)
	require.True(t, ok)

	clock.Advance(61 * time.Minute)
	_, ok = s.Get(sess.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Sweep(t *testing.T) {
	s, clock := newTestStore(10)
	old := s.Put("", dataset("T1"), "a.xlsx")

	clock.Advance(45 * time.Minute)
	fresh := s.Put("", dataset("T2"), "b.xlsx")

	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, s.Sweep())

	_, ok := s.Get(old.ID)
	assert.False(t, ok)
	_, ok = s.Get(fresh.ID)
	assert.True(t, ok)
}

func TestStore_LRUEviction(t *testing.T) {
	s, _ := newTestStore(2)

	a := s.Put("", dataset("A"), "a.xlsx")
	b := s.Put("", dataset("B"), "b.xlsx")

	_, ok := s.Get(a.ID)
	require.True(t, ok)

	c := s.Put("", dataset("C"), "c.xlsx")

	assert.Equal(t, 2, s.Len())
	_, ok = s.Get(b.ID)
	assert.False(t, ok, "least recently used session is evicted")
	_, ok = s.Get(a.ID)
	assert.True(t, ok)
	_, ok = s.Get(c.ID)
	assert.True(t, ok)
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(10)
	sess := s.Put("", dataset("T1"), "a.xlsx")

	s.Delete(sess.ID)
	s.Delete("unknown")

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Stats()["sessions"])
}

func TestStore_StartStopsWithContext(t *testing.T) {
	s, _ := newTestStore(10)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
}

func TestStore_Concurrent(t *testing.T) {
	s, _ := newTestStore(50)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := s.Put("", dataset("T"), "x.xlsx")
			s.Get(sess.ID)
			s.Sweep()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, s.Len())
}

func TestCookie(t *testing.T) {
	w := httptest.NewRecorder()
	SetCookie(w, "abc", time.Hour, false)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, IDFromRequest(r))
	r.AddCookie(c)
	assert.Equal(t, "abc", IDFromRequest(r))

	w = httptest.NewRecorder()
	ClearCookie(w)
	assert.Equal(t, -1, w.Result().Cookies()[0].MaxAge)
}
