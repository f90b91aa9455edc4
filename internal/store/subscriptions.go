package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cto-inventory-backend/internal/model"
)

// PutSubscription creates or replaces a subscription and the set of boxes it
// follows. Unknown box ids are ignored.
func (s *gormStore) PutSubscription(ctx context.Context, sub model.PushSubscription, boxIDs []string) error {
	sub.Boxes = nil
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		boxes := make([]*model.DistributionBox, 0)
		if len(boxIDs) > 0 {
			if err := tx.Where("id IN ?", boxIDs).Find(&boxes).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&sub).Association("Boxes").Replace(&boxes); err != nil {
			return fmt.Errorf("failed to replace subscribed boxes: %w", err)
		}
		return nil
	})
}

// GetSubscription returns a subscription with the boxes it follows.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Boxes").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if isRecordNotFound(err) {
			return model.PushSubscription{}, notFound("subscription", endpoint)
		}
		return model.PushSubscription{}, err
	}
	return sub, nil
}

// DeleteSubscription removes a subscription and its box mappings.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM subscription_box_mapping WHERE push_subscription_endpoint = ?", endpoint).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PushSubscription{Endpoint: endpoint}).Error
	})
}

// SubscriptionsForBox returns every subscription following a box.
func (s *gormStore) SubscriptionsForBox(ctx context.Context, boxID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_box_mapping sbm ON sbm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sbm.distribution_box_id = ?", boxID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for box %s: %w", boxID, err)
	}
	return subs, nil
}
