package keyvalue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/kvstore"
)

type activeSessionRepositoryImpl struct {
	store kvstore.Store
}

func NewActiveSessionRepository(store kvstore.Store) tracking.ActiveSessionRepository {
	return &activeSessionRepositoryImpl{store: store}
}

// Load implements tracking.ActiveSessionRepository.
func (r *activeSessionRepositoryImpl) Load(ctx context.Context) (*tracking.TrackingSession, error) {
	raw, ok, err := r.store.Get(ctx, tracking.ActiveSessionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load active session: %v", tracking.ErrStorage, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var session tracking.TrackingSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("%w: decode active session: %v", tracking.ErrStorage, err)
	}
	return &session, nil
}

// Save implements tracking.ActiveSessionRepository.
func (r *activeSessionRepositoryImpl) Save(ctx context.Context, session tracking.TrackingSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: encode active session: %v", tracking.ErrStorage, err)
	}
	if err := r.store.Set(ctx, tracking.ActiveSessionKey, string(data)); err != nil {
		return fmt.Errorf("%w: save active session: %v", tracking.ErrStorage, err)
	}
	return nil
}

// Clear implements tracking.ActiveSessionRepository.
func (r *activeSessionRepositoryImpl) Clear(ctx context.Context) error {
	if err := r.store.Remove(ctx, tracking.ActiveSessionKey); err != nil {
		return fmt.Errorf("%w: clear active session: %v", tracking.ErrStorage, err)
	}
	return nil
}
