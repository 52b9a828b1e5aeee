// Package session keeps per-buyer state (auth token, profile, reservation
// history) behind a Store so the booking core never touches ambient globals.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/prohmpiriya/ticket-storefront/internal/domain"
)

// ErrNoSession is returned when the context carries no session id
var ErrNoSession = errors.New("no session in context")

// Data is everything remembered about one buyer session
type Data struct {
	Token        string                     `json:"token,omitempty"`
	Profile      *domain.UserProfile        `json:"profile,omitempty"`
	Reservations []domain.ReservationRecord `json:"reservations,omitempty"`
	UpdatedAt    time.Time                  `json:"updatedAt"`
}

// Store persists session data by id. Get returns an empty Data for unknown ids.
// Update applies fn to the current data and saves the result atomically, so
// concurrent updates of one session never overwrite each other.
type Store interface {
	Get(ctx context.Context, id string) (*Data, error)
	Save(ctx context.Context, id string, data *Data) error
	Update(ctx context.Context, id string, fn func(*Data)) error
	Delete(ctx context.Context, id string) error
}

type ctxKey struct{}

// WithID returns a context carrying the session id
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the session id carried by ctx
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Manager offers the session operations used by the auth and reservation flows
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a Manager over store
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Load returns the data of the session in ctx
func (m *Manager) Load(ctx context.Context) (string, *Data, error) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return "", nil, ErrNoSession
	}
	data, err := m.store.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return id, data, nil
}

func (m *Manager) update(ctx context.Context, fn func(*Data)) error {
	id, ok := IDFromContext(ctx)
	if !ok {
		return ErrNoSession
	}
	return m.store.Update(ctx, id, func(d *Data) {
		fn(d)
		d.UpdatedAt = m.now()
	})
}

// SignIn stores the bearer token and profile
func (m *Manager) SignIn(ctx context.Context, token string, profile *domain.UserProfile) error {
	return m.update(ctx, func(d *Data) {
		d.Token = token
		d.Profile = profile
	})
}

// SetProfile refreshes the cached profile
func (m *Manager) SetProfile(ctx context.Context, profile *domain.UserProfile) error {
	return m.update(ctx, func(d *Data) { d.Profile = profile })
}

// SignOut clears token and profile and forgets the session
func (m *Manager) SignOut(ctx context.Context) error {
	id, ok := IDFromContext(ctx)
	if !ok {
		return ErrNoSession
	}
	return m.store.Delete(ctx, id)
}

// Token returns the bearer token of the session in ctx, "" when signed out
func (m *Manager) Token(ctx context.Context) (string, error) {
	_, data, err := m.Load(ctx)
	if err != nil {
		return "", err
	}
	return data.Token, nil
}

// RecordReservation appends a confirmed reservation to the history
func (m *Manager) RecordReservation(ctx context.Context, record domain.ReservationRecord) error {
	return m.update(ctx, func(d *Data) {
		d.Reservations = append(d.Reservations, record)
	})
}

// History returns confirmed reservations, newest first
func (m *Manager) History(ctx context.Context) ([]domain.ReservationRecord, error) {
	_, data, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ReservationRecord, len(data.Reservations))
	for i, r := range data.Reservations {
		out[len(out)-1-i] = r
	}
	return out, nil
}
