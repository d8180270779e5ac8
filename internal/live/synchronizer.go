package live

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"claims-service/internal/model"
)

type FilterMode string

const (
	FilterActive   FilterMode = "active"
	FilterArchived FilterMode = "archived"
)

func ParseFilterMode(raw string) (FilterMode, bool) {
	switch FilterMode(raw) {
	case FilterArchived:
		return FilterArchived, true
	case FilterActive, "":
		return FilterActive, true
	}
	return FilterActive, false
}

// Store is the snapshot half of the persistence gateway.
type Store interface {
	Snapshot(ctx context.Context, archived bool) ([]model.ClaimView, error)
}

// Feed delivers change ticks. The cancel function must be called on
// teardown.
type Feed interface {
	Subscribe() (<-chan struct{}, func())
}

// Update is one frame pushed to the view: either a fresh full snapshot or an
// error. Fatal errors require operator intervention and end the
// subscription.
type Update struct {
	Mode   FilterMode        `json:"view"`
	Claims []model.ClaimView `json:"claims,omitempty"`
	Error  string            `json:"error,omitempty"`
	Fatal  bool              `json:"fatal,omitempty"`
}

const maxRetries = 3

// Synchronizer keeps one in-memory ordered claim list in sync with the
// store. Every change tick triggers a full re-query; the new snapshot
// replaces the previous one wholesale, so the last snapshot delivered always
// wins. Each visible list owns exactly one Synchronizer.
type Synchronizer struct {
	store     Store
	feed      Feed
	log       zerolog.Logger
	baseDelay time.Duration
	sleep     func(time.Duration)

	mu       sync.RWMutex
	mode     FilterMode
	snapshot []model.ClaimView

	updates chan Update
	modeCh  chan FilterMode
}

func NewSynchronizer(store Store, feed Feed, mode FilterMode, baseDelay time.Duration, log zerolog.Logger) *Synchronizer {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Synchronizer{
		store:     store,
		feed:      feed,
		log:       log,
		baseDelay: baseDelay,
		sleep:     time.Sleep,
		mode:      mode,
		updates:   make(chan Update, 8),
		modeCh:    make(chan FilterMode, 1),
	}
}

// Updates is the stream of snapshot frames for the owning view.
func (s *Synchronizer) Updates() <-chan Update {
	return s.updates
}

// Snapshot returns a copy of the current in-memory view.
func (s *Synchronizer) Snapshot() []model.ClaimView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ClaimView, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

func (s *Synchronizer) Mode() FilterMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetFilterMode switches the subscribed population. The running loop tears
// down its feed subscription and establishes a new one.
func (s *Synchronizer) SetFilterMode(mode FilterMode) {
	select {
	case s.modeCh <- mode:
	default:
		// un cambio de vista ya pendiente; el último gana
		select {
		case <-s.modeCh:
		default:
		}
		s.modeCh <- mode
	}
}

// Run drives the subscription until ctx is cancelled or a fatal store error
// is hit. It always emits an initial snapshot before waiting for ticks.
func (s *Synchronizer) Run(ctx context.Context) error {
	ticks, cancel := s.feed.Subscribe()
	defer func() { cancel() }()

	if err := s.refresh(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case mode := <-s.modeCh:
			cancel()
			ticks, cancel = s.feed.Subscribe()
			s.mu.Lock()
			s.mode = mode
			s.mu.Unlock()
			if err := s.refresh(ctx); err != nil {
				return err
			}
		case <-ticks:
			if err := s.refresh(ctx); err != nil {
				return err
			}
		}
	}
}

// refresh re-queries the full filtered population with bounded retries.
// Missing-index errors are terminal; transport errors are retried up to
// maxRetries with linearly increasing backoff and then surfaced as a
// persistent connectivity failure without killing the loop.
func (s *Synchronizer) refresh(ctx context.Context) error {
	mode := s.Mode()
	archived := mode == FilterArchived

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			s.sleep(time.Duration(attempt) * s.baseDelay)
		}

		claims, err := s.store.Snapshot(ctx, archived)
		if err == nil {
			sortSnapshot(claims)
			s.mu.Lock()
			s.snapshot = claims
			s.mu.Unlock()
			s.emit(Update{Mode: mode, Claims: claims})
			return nil
		}

		if IsIndexMissing(err) {
			s.log.Error().Err(err).Msg("live query needs an index; contact the administrator")
			s.emit(Update{Mode: mode, Error: "falta un índice en la base de datos; contacte al administrador", Fatal: true})
			return fmt.Errorf("%w: %v", ErrIndexMissing, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}

	s.log.Error().Err(lastErr).Int("attempts", maxRetries+1).Msg("live snapshot refresh failed")
	s.emit(Update{Mode: mode, Error: "error de conexión persistente"})
	return nil
}

func (s *Synchronizer) emit(update Update) {
	select {
	case s.updates <- update:
	default:
		// el consumidor está atrasado; descarta el frame más viejo
		select {
		case <-s.updates:
		default:
		}
		s.updates <- update
	}
}

// sortSnapshot orders by created_at descending with id descending as
// tie-break, so the order is total even when timestamps collide.
func sortSnapshot(claims []model.ClaimView) {
	sort.SliceStable(claims, func(i, j int) bool {
		a, b := claims[i], claims[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) > 0
	})
}
