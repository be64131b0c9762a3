// Package session keeps the per-chat purchase confirmation dialog.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"phonemarket-bot/internal/cache"
	"phonemarket-bot/internal/model"
)

// State is either Idle or AwaitingConfirmation.
type State interface {
	Status() Status
	state()
}

// Status names a State variant.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusAwaiting Status = "awaiting_confirmation"
)

// Idle means no purchase is pending.
type Idle struct{}

func (Idle) Status() Status { return StatusIdle }
func (Idle) state()         {}

// AwaitingConfirmation holds the offer snapshot the user was quoted.
type AwaitingConfirmation struct {
	Offer       model.Offer
	RequestedAt time.Time
	Expiry      time.Time
}

func (AwaitingConfirmation) Status() Status { return StatusAwaiting }
func (AwaitingConfirmation) state()         {}

// Expired reports whether a reply at now is too late.
func (a AwaitingConfirmation) Expired(now time.Time) bool {
	return now.After(a.Expiry)
}

// Key identifies one dialog.
type Key struct {
	UserID int64
	ChatID int64
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.UserID, k.ChatID)
}

type envelope struct {
	Status      Status       `json:"status"`
	Offer       *model.Offer `json:"offer,omitempty"`
	RequestedAt time.Time    `json:"requested_at"`
	Expiry      time.Time    `json:"expiry"`
}

func encode(st State) ([]byte, error) {
	switch s := st.(type) {
	case AwaitingConfirmation:
		return json.Marshal(envelope{Status: StatusAwaiting, Offer: &s.Offer, RequestedAt: s.RequestedAt, Expiry: s.Expiry})
	case Idle, nil:
		return json.Marshal(envelope{Status: StatusIdle})
	}
	return nil, fmt.Errorf("unknown session state %T", st)
}

func decode(b []byte) (State, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	switch env.Status {
	case StatusIdle:
		return Idle{}, nil
	case StatusAwaiting:
		if env.Offer == nil {
			return nil, fmt.Errorf("pending session without offer")
		}
		return AwaitingConfirmation{Offer: *env.Offer, RequestedAt: env.RequestedAt, Expiry: env.Expiry}, nil
	}
	return nil, fmt.Errorf("unknown session status %q", env.Status)
}

// Store persists dialog states in a cache. Pending dialogs outlive their expiry
// by retention so a late reply can still be told the window closed.
type Store struct {
	cache     cache.Cache
	retention time.Duration
}

// NewStore creates a session store over c.
func NewStore(c cache.Cache, retention time.Duration) *Store {
	return &Store{cache: c, retention: retention}
}

// Load returns the dialog state for key, Idle if none is stored.
func (s *Store) Load(ctx context.Context, key Key) (State, error) {
	b, err := s.cache.Get(ctx, key.String())
	if errors.Is(err, cache.ErrCacheMiss) {
		return Idle{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decode(b)
}

// Take returns and removes the dialog state for key, Idle if none is stored.
func (s *Store) Take(ctx context.Context, key Key) (State, error) {
	b, err := s.cache.Take(ctx, key.String())
	if errors.Is(err, cache.ErrCacheMiss) {
		return Idle{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take session: %w", err)
	}
	return decode(b)
}

// Save stores st. Saving Idle removes the entry.
func (s *Store) Save(ctx context.Context, key Key, st State) error {
	pending, ok := st.(AwaitingConfirmation)
	if !ok {
		return s.Clear(ctx, key)
	}
	b, err := encode(pending)
	if err != nil {
		return err
	}
	ttl := pending.Expiry.Sub(pending.RequestedAt) + s.retention
	if ttl <= 0 {
		ttl = s.retention
	}
	if err := s.cache.Set(ctx, key.String(), b, ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear resets key to Idle.
func (s *Store) Clear(ctx context.Context, key Key) error {
	if err := s.cache.Delete(ctx, key.String()); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Ping checks the backing cache.
func (s *Store) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}
