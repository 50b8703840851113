package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/opentill/terminal/internal/domain/enum"
	domainRepo "github.com/opentill/terminal/internal/domain/repository"
)

// Prober is the liveness probe surface of the API client.
type Prober interface {
	Hello(ctx context.Context) error
}

// ConnectivityService owns the Online/Offline state machine. The initial
// probe runs synchronously at startup; while Offline a background loop
// re-probes with exponential backoff, and the first success flips the
// terminal Online and fires the registered hooks (queue replay, feed
// reconnect). Any component may force Offline on a connection error.
type ConnectivityService struct {
	client  Prober
	records domainRepo.RecordStore
	log     zerolog.Logger

	interval    time.Duration
	maxInterval time.Duration

	mode     atomic.Int32
	kick     chan struct{}
	hookMu   sync.Mutex
	onOnline []func(context.Context)
}

// NewConnectivityService creates a new connectivity service probing at the
// given base interval.
func NewConnectivityService(client Prober, records domainRepo.RecordStore, interval time.Duration, log zerolog.Logger) *ConnectivityService {
	return &ConnectivityService{
		client:      client,
		records:     records,
		log:         log.With().Str("component", "connectivity").Logger(),
		interval:    interval,
		maxInterval: interval * 8,
		kick:        make(chan struct{}, 1),
	}
}

// Mode returns the current connectivity mode.
func (s *ConnectivityService) Mode() enum.Mode {
	return enum.Mode(s.mode.Load())
}

// Online reports whether the terminal is in Online mode.
func (s *ConnectivityService) Online() bool {
	return s.Mode() == enum.ModeOnline
}

// OnOnline registers a hook fired on every Offline -> Online transition.
// Hooks run sequentially in registration order.
func (s *ConnectivityService) OnOnline(fn func(context.Context)) {
	s.hookMu.Lock()
	s.onOnline = append(s.onOnline, fn)
	s.hookMu.Unlock()
}

// InitialProbe determines the starting mode. A failed probe is only
// acceptable when the device holds a complete prior snapshot (config,
// catalog and auth cache); without one the device cannot operate at all.
func (s *ConnectivityService) InitialProbe(ctx context.Context) error {
	if err := s.client.Hello(ctx); err == nil {
		s.mode.Store(int32(enum.ModeOnline))
		s.log.Info().Msg("server reachable, starting online")
		return nil
	}

	complete, err := s.hasOfflineSnapshot(ctx)
	if err != nil {
		return err
	}
	if !complete {
		return fmt.Errorf("server unreachable and no complete local snapshot: device cannot start")
	}

	s.mode.Store(int32(enum.ModeOffline))
	s.log.Warn().Msg("server unreachable, starting offline from local snapshot")
	return nil
}

// ForceOffline transitions to Offline immediately. Called by any component
// that hits a connection error, not just the probe.
func (s *ConnectivityService) ForceOffline(reason string) {
	if s.mode.CompareAndSwap(int32(enum.ModeOnline), int32(enum.ModeOffline)) {
		s.log.Warn().Str("reason", reason).Msg("connection lost, switching offline")
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// Start runs the re-probe loop until ctx is cancelled.
func (s *ConnectivityService) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *ConnectivityService) run(ctx context.Context) {
	backoff := s.interval
	for {
		if s.Online() {
			// Nothing to probe; wait until someone forces offline.
			select {
			case <-ctx.Done():
				return
			case <-s.kick:
				backoff = s.interval
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if err := s.client.Hello(ctx); err != nil {
			s.log.Debug().Err(err).Dur("next_probe", backoff).Msg("probe failed")
			if backoff *= 2; backoff > s.maxInterval {
				backoff = s.maxInterval
			}
			continue
		}

		backoff = s.interval
		s.setOnline(ctx)
	}
}

func (s *ConnectivityService) setOnline(ctx context.Context) {
	if !s.mode.CompareAndSwap(int32(enum.ModeOffline), int32(enum.ModeOnline)) {
		return
	}
	s.log.Info().Msg("server reachable again, switching online")

	s.hookMu.Lock()
	hooks := make([]func(context.Context), len(s.onOnline))
	copy(hooks, s.onOnline)
	s.hookMu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
}

func (s *ConnectivityService) hasOfflineSnapshot(ctx context.Context) (bool, error) {
	for _, kind := range []enum.RecordKind{enum.RecordConfig, enum.RecordItem, enum.RecordAuthCache} {
		count, err := s.records.Count(ctx, kind)
		if err != nil {
			return false, err
		}
		if count == 0 {
			return false, nil
		}
	}
	return true, nil
}
