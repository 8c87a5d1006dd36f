package keyvalue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/domain/tracking"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/kvstore"
)

type offlineQueueRepositoryImpl struct {
	store kvstore.Store
}

func NewOfflineQueueRepository(store kvstore.Store) tracking.OfflineQueueRepository {
	return &offlineQueueRepositoryImpl{store: store}
}

// Load implements tracking.OfflineQueueRepository.
func (r *offlineQueueRepositoryImpl) Load(ctx context.Context) ([]tracking.OfflineRecord, error) {
	raw, ok, err := r.store.Get(ctx, tracking.OfflineQueueKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load offline queue: %v", tracking.ErrStorage, err)
	}
	if !ok || raw == "" {
		return []tracking.OfflineRecord{}, nil
	}

	var records []tracking.OfflineRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: decode offline queue: %v", tracking.ErrStorage, err)
	}
	if records == nil {
		records = []tracking.OfflineRecord{}
	}
	return records, nil
}

// Save implements tracking.OfflineQueueRepository.
func (r *offlineQueueRepositoryImpl) Save(ctx context.Context, records []tracking.OfflineRecord) error {
	if records == nil {
		records = []tracking.OfflineRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encode offline queue: %v", tracking.ErrStorage, err)
	}
	if err := r.store.Set(ctx, tracking.OfflineQueueKey, string(data)); err != nil {
		return fmt.Errorf("%w: save offline queue: %v", tracking.ErrStorage, err)
	}
	return nil
}
