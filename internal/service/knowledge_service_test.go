package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"tasfiat-brain/internal/models"
)

type fakeSource struct {
	mu      sync.Mutex
	items   []models.KnowledgeItem
	err     error
	calls   atomic.Int32
	release chan struct{}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context) ([]models.KnowledgeItem, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, f.err
}

func (f *fakeSource) set(items []models.KnowledgeItem, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items, f.err = items, err
}

func catalog() []models.KnowledgeItem {
	return []models.KnowledgeItem{
		{Slug: "joma-white", Name: "حذاء جوما أبيض", Sizes: "40,41,42", Price: 199, Availability: "متوفر"},
		{Slug: "joma-black", Name: "حذاء جوما أسود", Sizes: "42,43", Price: 249},
		{Slug: "policy-returns", Name: "سياسة الإرجاع", BrandTags: "سياسات"},
	}
}

func TestKnowledgeService_RefreshKeepsPreviousSnapshot(t *testing.T) {
	src := &fakeSource{items: catalog()}
	svc := NewKnowledgeService(src, time.Minute, zap.NewNop())

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())
	assert.Same(t, snap, svc.Snapshot())

	tests := []struct {
		name  string
		items []models.KnowledgeItem
		err   error
		want  error
	}{
		{"fetch error", nil, errors.New("boom"), nil},
		{"empty payload", []models.KnowledgeItem{}, nil, ErrEmptyKnowledge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src.set(tc.items, tc.err)
			_, err := svc.Refresh(context.Background())
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
			assert.Same(t, snap, svc.Snapshot())
			assert.NotEmpty(t, svc.Status().LastError)
		})
	}
}

func TestKnowledgeService_NotConfigured(t *testing.T) {
	svc := NewKnowledgeService(nil, time.Minute, zap.NewNop())
	assert.False(t, svc.Configured())

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrKnowledgeNotConfigured)
	assert.ErrorIs(t, svc.Ensure(context.Background()), ErrKnowledgeNotConfigured)
	assert.Nil(t, svc.Snapshot())

	st := svc.Status()
	assert.False(t, st.Configured)
	assert.Zero(t, st.Count)
	assert.Nil(t, st.LoadedAt)
}

func TestKnowledgeService_ConcurrentRefreshSharesOneFetch(t *testing.T) {
	src := &fakeSource{items: catalog(), release: make(chan struct{})}
	svc := NewKnowledgeService(src, time.Minute, zap.NewNop())

	const callers = 8
	var wg sync.WaitGroup
	snaps := make([]any, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := svc.Refresh(context.Background())
			assert.NoError(t, err)
			snaps[i] = s
		}(i)
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, s := range snaps {
		assert.Same(t, svc.Snapshot(), s)
	}
}

func TestKnowledgeService_Ensure(t *testing.T) {
	t.Run("loads once within ttl", func(t *testing.T) {
		src := &fakeSource{items: catalog()}
		svc := NewKnowledgeService(src, time.Hour, zap.NewNop())

		require.NoError(t, svc.Ensure(context.Background()))
		require.NoError(t, svc.Ensure(context.Background()))
		assert.Equal(t, int32(1), src.calls.Load())
	})

	t.Run("reloads after ttl", func(t *testing.T) {
		src := &fakeSource{items: catalog()}
		svc := NewKnowledgeService(src, 5*time.Millisecond, zap.NewNop())

		require.NoError(t, svc.Ensure(context.Background()))
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, svc.Ensure(context.Background()))
		assert.Equal(t, int32(2), src.calls.Load())
	})

	t.Run("fails only without a snapshot", func(t *testing.T) {
		src := &fakeSource{err: errors.New("down")}
		svc := NewKnowledgeService(src, 5*time.Millisecond, zap.NewNop())
		assert.Error(t, svc.Ensure(context.Background()))

		src.set(catalog(), nil)
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, svc.Ensure(context.Background()))

		src.set(nil, errors.New("down again"))
		time.Sleep(20 * time.Millisecond)
		assert.NoError(t, svc.Ensure(context.Background()))
		assert.Equal(t, 3, svc.Snapshot().Len())
	})

	t.Run("failed attempt counts towards ttl", func(t *testing.T) {
		src := &fakeSource{err: errors.New("down")}
		svc := NewKnowledgeService(src, time.Hour, zap.NewNop())
		assert.Error(t, svc.Ensure(context.Background()))
		assert.Error(t, svc.Ensure(context.Background()))
		assert.Equal(t, int32(1), src.calls.Load())
	})
}

func TestKnowledgeService_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	src := &fakeSource{items: catalog()}
	svc := NewKnowledgeService(src, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 3, svc.Snapshot().Len())
}

func TestKnowledgeService_RunWithoutIntervalReturns(t *testing.T) {
	svc := NewKnowledgeService(&fakeSource{}, time.Minute, zap.NewNop())
	svc.Run(context.Background(), 0)
}

func TestHTTPKnowledgeSource_Fetch(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		count   int
		wantErr error
	}{
		{
			name:   "valid feed",
			status: http.StatusOK,
			body: `{"count": 2, "items": [
				{"product_slug": "a", "name": "حذاء", "price": "120", "sizes": [40, 41], "url": "https://x.test/product/a"},
				{"product_slug": "b", "name": "صندل", "price": null, "has_discount": "yes"}
			]}`,
			count: 2,
		},
		{name: "items not an array", status: http.StatusOK, body: `{"items": "nope"}`, wantErr: ErrInvalidKnowledge},
		{name: "missing items", status: http.StatusOK, body: `{"count": 0}`, wantErr: ErrInvalidKnowledge},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: ErrInvalidKnowledge},
		{name: "empty items", status: http.StatusOK, body: `{"items": []}`, wantErr: ErrEmptyKnowledge},
		{name: "server error", status: http.StatusBadGateway, body: `{}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			src, err := NewHTTPKnowledgeSource(srv.URL, time.Second, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, srv.URL, src.Name())

			items, err := src.Fetch(context.Background())
			if tc.count > 0 {
				require.NoError(t, err)
				require.Len(t, items, tc.count)
				assert.Equal(t, models.Amount(120), items[0].Price)
				assert.Equal(t, []string{"40", "41"}, items[0].SizeList())
				assert.Equal(t, "https://x.test/product/a", items[0].PageURL)
				assert.True(t, bool(items[1].HasDiscount))
				return
			}
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestKnowledgeDecoder_SkipsBadItems(t *testing.T) {
	decoder, err := NewKnowledgeDecoder()
	require.NoError(t, err)

	decoded, err := decoder.Decode([]byte(`{"items": [
		{"product_slug": "a", "price": "₪150"},
		{"product_slug": "b", "price": {"amount": 90}},
		"not an item",
		{"product_slug": "c", "price": 120, "age_group": 3}
	]}`))
	require.NoError(t, err)
	require.Len(t, decoded.Items, 2)
	assert.Equal(t, models.Amount(150), decoded.Items[0].Price)
	assert.Equal(t, "c", decoded.Items[1].Slug)
	assert.Equal(t, "3", decoded.Items[1].AgeGroup)

	require.Len(t, decoded.Skipped, 2)
	assert.Equal(t, 1, decoded.Skipped[0].Index)
	assert.Equal(t, 2, decoded.Skipped[1].Index)

	_, err = decoder.Decode([]byte(`{"items": [1, "two"]}`))
	assert.ErrorIs(t, err, ErrInvalidKnowledge)
}

func TestHTTPKnowledgeSource_FailedRefreshKeepsSnapshot(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			_, _ = w.Write([]byte(`{"items": []}`))
			return
		}
		_, _ = w.Write([]byte(`{"items": [{"product_slug": "a", "name": "حذاء"}]}`))
	}))
	defer srv.Close()

	src, err := NewHTTPKnowledgeSource(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)
	svc := NewKnowledgeService(src, time.Minute, zap.NewNop())

	first, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	fail.Store(true)
	_, err = svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrEmptyKnowledge)
	assert.Same(t, first, svc.Snapshot())

	st := svc.Status()
	assert.True(t, st.Configured)
	assert.Equal(t, 1, st.Count)
	assert.NotNil(t, st.LoadedAt)
	assert.NotNil(t, st.LastAttempt)
}
