package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cto-inventory-backend/internal/model"
	"cto-inventory-backend/internal/occupancy"
)

// Registry owns distribution box records.
type Registry interface {
	RegisterBox(ctx context.Context, box model.DistributionBox) (model.DistributionBox, error)
	GetBox(ctx context.Context, id string) (model.DistributionBox, error)
	ListBoxes(ctx context.Context, status *model.BoxStatus) ([]model.DistributionBox, error)
	UpdateBox(ctx context.Context, id string, patch model.BoxPatch) (model.DistributionBox, error)
	RemoveBox(ctx context.Context, id string) error
}

// Ledger owns client connections, each bound to one (box, port) pair.
type Ledger interface {
	Connect(ctx context.Context, c model.ClientConnection) (model.ClientConnection, error)
	GetConnection(ctx context.Context, id string) (model.ClientConnection, error)
	ListConnections(ctx context.Context) ([]model.ClientConnection, error)
	FindConnectionByContract(ctx context.Context, contractID string) (model.ClientConnection, error)
	FindConnectionsByOnuSerial(ctx context.Context, serial string) ([]model.ClientConnection, error)
	UpdateConnection(ctx context.Context, id string, patch model.ConnectionPatch) (model.ClientConnection, error)
	RemoveConnection(ctx context.Context, id string) error
}

// OccupancyView is recomputed from stored boxes and connections on every call.
type OccupancyView interface {
	PortsStatus(ctx context.Context, boxID string) (occupancy.PortsStatus, error)
	OccupancyStats(ctx context.Context, status *model.BoxStatus) ([]occupancy.BoxStats, error)
	BoxStats(ctx context.Context, boxID string) (occupancy.BoxStats, error)
}

// Subscriptions stores browser push subscriptions for capacity alerts.
type Subscriptions interface {
	PutSubscription(ctx context.Context, sub model.PushSubscription, boxIDs []string) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForBox(ctx context.Context, boxID string) ([]model.PushSubscription, error)
}

// Store defines the interface for all database operations.
type Store interface {
	Registry
	Ledger
	OccupancyView
	Subscriptions
	Ping(ctx context.Context) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	log *zap.Logger

	mu          sync.Mutex
	lastCreated time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, log *zap.Logger) Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &gormStore{db: db, log: log}
}

// Ping checks that the database answers.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// nextCreatedAt returns a creation time strictly after the previous one
// handed out by this store, so rows ordered by created_at keep insertion
// order even when two inserts land on the same clock tick.
func (s *gormStore) nextCreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(s.lastCreated) {
		now = s.lastCreated.Add(time.Microsecond)
	}
	s.lastCreated = now
	return now
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// findBox loads a box by id on the given handle, mapping a missing row to ErrNotFound.
func findBox(tx *gorm.DB, id string) (model.DistributionBox, error) {
	var box model.DistributionBox
	if err := tx.Where("id = ?", id).First(&box).Error; err != nil {
		if isRecordNotFound(err) {
			return model.DistributionBox{}, notFound("box", id)
		}
		return model.DistributionBox{}, err
	}
	return box, nil
}
