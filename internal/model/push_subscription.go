package model

import "time"

// PushSubscription holds the information for a browser push subscription
// and the boxes it wants capacity alerts for.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Boxes []*DistributionBox `gorm:"many2many:subscription_box_mapping;constraint:OnDelete:CASCADE"`
}
