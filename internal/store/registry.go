package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cto-inventory-backend/internal/model"
	"cto-inventory-backend/internal/parse"
)

// RegisterBox validates and persists a new box under a fresh id. An empty
// status defaults to ACTIVE.
func (s *gormStore) RegisterBox(ctx context.Context, box model.DistributionBox) (model.DistributionBox, error) {
	box.ID = uuid.NewString()
	box.CreatedAt = s.nextCreatedAt()
	box.Connections = nil
	if box.Status == "" {
		box.Status = model.BoxStatusActive
	}
	if err := validateBox(box); err != nil {
		return model.DistributionBox{}, err
	}
	s.warnSplitterMismatch(box)

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&box).Error; err != nil {
		return model.DistributionBox{}, fmt.Errorf("failed to register box: %w", err)
	}
	s.log.Info("box registered", zap.String("box_id", box.ID), zap.String("name", box.Name), zap.Int("total_ports", box.TotalPorts))
	return box, nil
}

// GetBox returns a box with its connections ordered by port.
func (s *gormStore) GetBox(ctx context.Context, id string) (model.DistributionBox, error) {
	var box model.DistributionBox
	err := s.db.WithContext(ctx).
		Preload("Connections", orderByPort).
		Where("id = ?", id).
		First(&box).Error
	if err != nil {
		if isRecordNotFound(err) {
			return model.DistributionBox{}, notFound("box", id)
		}
		return model.DistributionBox{}, err
	}
	return box, nil
}

func orderByPort(db *gorm.DB) *gorm.DB {
	return db.Order("port_number ASC")
}

// ListBoxes returns every box, with its connections, in insertion order, optionally only those with
// the given status.
func (s *gormStore) ListBoxes(ctx context.Context, status *model.BoxStatus) ([]model.DistributionBox, error) {
	q := s.db.WithContext(ctx).
		Preload("Connections", orderByPort).
		Order("created_at ASC").
		Order("id ASC")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	boxes := make([]model.DistributionBox, 0)
	if err := q.Find(&boxes).Error; err != nil {
		return nil, fmt.Errorf("failed to list boxes: %w", err)
	}
	return boxes, nil
}

// UpdateBox applies the supplied fields and validates the resulting record.
// Shrinking TotalPorts does not touch connections already on higher ports.
func (s *gormStore) UpdateBox(ctx context.Context, id string, patch model.BoxPatch) (model.DistributionBox, error) {
	var updated model.DistributionBox
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findBox(tx, id)
		if err != nil {
			return err
		}

		next := patch.Apply(current)
		if err := validateBox(next); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&next).Error; err != nil {
			return fmt.Errorf("failed to update box %s: %w", id, err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return model.DistributionBox{}, err
	}

	if patch.TotalPorts != nil || patch.SplitterType != nil {
		s.warnSplitterMismatch(updated)
	}
	return updated, nil
}

// RemoveBox deletes a box together with every connection bound to it.
func (s *gormStore) RemoveBox(ctx context.Context, id string) error {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findBox(tx, id); err != nil {
			return err
		}
		res := tx.Where("box_id = ?", id).Delete(&model.ClientConnection{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete connections of box %s: %w", id, res.Error)
		}
		removed = res.RowsAffected
		if err := tx.Exec("DELETE FROM subscription_box_mapping WHERE distribution_box_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete subscriptions of box %s: %w", id, err)
		}
		if err := tx.Delete(&model.DistributionBox{ID: id}).Error; err != nil {
			return fmt.Errorf("failed to delete box %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("box removed", zap.String("box_id", id), zap.Int64("connections_removed", removed))
	return nil
}

func validateBox(b model.DistributionBox) error {
	switch {
	case strings.TrimSpace(b.Name) == "":
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	case b.Latitude < -90 || b.Latitude > 90:
		return &ValidationError{Field: "latitude", Reason: fmt.Sprintf("%v is outside [-90, 90]", b.Latitude)}
	case b.Longitude < -180 || b.Longitude > 180:
		return &ValidationError{Field: "longitude", Reason: fmt.Sprintf("%v is outside [-180, 180]", b.Longitude)}
	case strings.TrimSpace(b.SplitterType) == "":
		return &ValidationError{Field: "splitterType", Reason: "must not be empty"}
	case b.TotalPorts < 1:
		return &ValidationError{Field: "totalPorts", Reason: "must be at least 1"}
	case !b.Status.Valid():
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", b.Status)}
	}
	return nil
}

func (s *gormStore) warnSplitterMismatch(b model.DistributionBox) {
	outputs := parse.SplitterOutputs(b.SplitterType)
	if outputs > 0 && outputs != b.TotalPorts {
		s.log.Warn("splitter type does not match port count",
			zap.String("box_id", b.ID),
			zap.String("splitter_type", b.SplitterType),
			zap.Int("total_ports", b.TotalPorts))
	}
}
