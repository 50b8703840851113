package service

import (
	"sync"

	"github.com/opentill/terminal/internal/domain/entity"
)

// Session is the process-level device state: the logged-in operator, the
// config snapshot, the device identity and the last realtime sequence seen.
// One instance is created at startup and passed into each component; nothing
// else holds a second mutable copy.
type Session struct {
	mu sync.RWMutex

	user    *entity.CachedUser
	config  *entity.TerminalConfig
	device  *entity.DeviceIdentity
	lastSeq int64
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// SetUser records the logged-in operator.
func (s *Session) SetUser(u *entity.CachedUser) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// User returns the logged-in operator, or nil.
func (s *Session) User() *entity.CachedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// UserID returns the logged-in operator's id, or zero.
func (s *Session) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return 0
	}
	return s.user.ID
}

// SetConfig replaces the config snapshot.
func (s *Session) SetConfig(cfg *entity.TerminalConfig) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}

// Config returns the current config snapshot, never nil.
func (s *Session) Config() *entity.TerminalConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return &entity.TerminalConfig{}
	}
	return s.config
}

// SetDevice records the device identity.
func (s *Session) SetDevice(d *entity.DeviceIdentity) {
	s.mu.Lock()
	s.device = d
	s.mu.Unlock()
}

// Device returns the device identity, never nil.
func (s *Session) Device() *entity.DeviceIdentity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.device == nil {
		return &entity.DeviceIdentity{}
	}
	return s.device
}

// SetLastSeq records the highest realtime sequence number observed.
func (s *Session) SetLastSeq(seq int64) {
	s.mu.Lock()
	if seq > s.lastSeq {
		s.lastSeq = seq
	}
	s.mu.Unlock()
}

// LastSeq returns the highest realtime sequence number observed.
func (s *Session) LastSeq() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeq
}
