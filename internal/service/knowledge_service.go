package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tasfiat-brain/internal/search"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "knowledge"

// KnowledgeStatus is what /health reports about the knowledge store.
type KnowledgeStatus struct {
	Configured  bool       `json:"configured"`
	Source      string     `json:"source,omitempty"`
	Count       int        `json:"count"`
	Duplicates  int        `json:"duplicates"`
	LoadedAt    *time.Time `json:"loaded_at,omitempty"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// KnowledgeService owns the current knowledge snapshot. Readers always get
// a complete snapshot; a failed refresh leaves the previous one in place.
type KnowledgeService struct {
	source   KnowledgeSource
	cacheTTL time.Duration
	logger   *zap.Logger

	current atomic.Pointer[search.Snapshot]
	group   singleflight.Group

	mu          sync.Mutex
	lastAttempt time.Time
	lastErr     error
}

// NewKnowledgeService wraps source, which may be nil when no knowledge
// source is configured.
func NewKnowledgeService(source KnowledgeSource, cacheTTL time.Duration, logger *zap.Logger) *KnowledgeService {
	return &KnowledgeService{
		source:   source,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (s *KnowledgeService) Configured() bool {
	return s.source != nil
}

// Snapshot returns the current snapshot, nil before the first successful
// load.
func (s *KnowledgeService) Snapshot() *search.Snapshot {
	return s.current.Load()
}

// Refresh fetches the source and swaps in a new snapshot. Concurrent calls
// share one fetch.
func (s *KnowledgeService) Refresh(ctx context.Context) (*search.Snapshot, error) {
	if s.source == nil {
		return nil, ErrKnowledgeNotConfigured
	}
	v, err, _ := s.group.Do(refreshKey, func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*search.Snapshot), nil
}

func (s *KnowledgeService) refresh(ctx context.Context) (*search.Snapshot, error) {
	started := time.Now()
	items, err := s.source.Fetch(ctx)
	if err == nil && len(items) == 0 {
		err = ErrEmptyKnowledge
	}

	s.mu.Lock()
	s.lastAttempt = started
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("Knowledge refresh failed, keeping previous snapshot",
			zap.String("source", s.source.Name()),
			zap.Int("current_count", s.Snapshot().Len()),
			zap.Error(err),
		)
		return nil, err
	}

	snap := search.NewSnapshot(items, time.Now())
	s.current.Store(snap)

	s.logger.Info("Knowledge loaded",
		zap.String("source", s.source.Name()),
		zap.Int("count", snap.Len()),
		zap.Int("duplicates", snap.Duplicates()),
		zap.Duration("took", time.Since(started)),
	)
	return snap, nil
}

// Ensure refreshes when the snapshot is missing or older than the cache
// TTL. Failed attempts count towards the TTL as well, so a broken source is
// not hit on every request. The error is returned only when there is no
// snapshot to answer from.
func (s *KnowledgeService) Ensure(ctx context.Context) error {
	if s.source == nil {
		return ErrKnowledgeNotConfigured
	}
	if !s.stale() {
		return nil
	}
	_, err := s.Refresh(ctx)
	if err != nil && s.Snapshot() != nil {
		return nil
	}
	return err
}

func (s *KnowledgeService) stale() bool {
	snap := s.Snapshot()
	s.mu.Lock()
	last := s.lastAttempt
	s.mu.Unlock()

	if snap == nil && last.IsZero() {
		return true
	}
	if snap != nil && snap.LoadedAt().After(last) {
		last = snap.LoadedAt()
	}
	return s.cacheTTL > 0 && time.Since(last) > s.cacheTTL
}

// Run refreshes every interval until ctx is done.
func (s *KnowledgeService) Run(ctx context.Context, interval time.Duration) {
	if s.source == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Knowledge refresher started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Knowledge refresher stopped")
			return
		case <-ticker.C:
			_, _ = s.Refresh(ctx)
		}
	}
}

func (s *KnowledgeService) Status() KnowledgeStatus {
	st := KnowledgeStatus{Configured: s.source != nil}
	if s.source != nil {
		st.Source = s.source.Name()
	}
	if snap := s.Snapshot(); snap != nil {
		loaded := snap.LoadedAt()
		st.Count = snap.Len()
		st.Duplicates = snap.Duplicates()
		st.LoadedAt = &loaded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastAttempt.IsZero() {
		attempt := s.lastAttempt
		st.LastAttempt = &attempt
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
