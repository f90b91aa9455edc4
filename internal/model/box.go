package model

import "time"

// BoxStatus is the free-form lifecycle label of a distribution box.
// Any status may move to any other.
type BoxStatus string

const (
	BoxStatusActive      BoxStatus = "ACTIVE"
	BoxStatusPlanned     BoxStatus = "PLANNED"
	BoxStatusMaintenance BoxStatus = "MAINTENANCE"
)

// Valid reports whether s is one of the known statuses.
func (s BoxStatus) Valid() bool {
	switch s {
	case BoxStatusActive, BoxStatusPlanned, BoxStatusMaintenance:
		return true
	}
	return false
}

// DistributionBox is a fiber splitter cabinet (CTO). TotalPorts is the only
// authority for the valid port range [1, TotalPorts].
type DistributionBox struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	Name             string     `gorm:"size:100;not null" json:"name"`
	Latitude         float64    `gorm:"type:decimal(10,7);not null;check:chk_box_latitude,latitude BETWEEN -90 AND 90" json:"latitude"`
	Longitude        float64    `gorm:"type:decimal(10,7);not null;check:chk_box_longitude,longitude BETWEEN -180 AND 180" json:"longitude"`
	SplitterType     string     `gorm:"size:10;not null" json:"splitterType"`
	TotalPorts       int        `gorm:"type:smallint;not null;check:chk_box_total_ports,total_ports >= 1" json:"totalPorts"`
	Status           BoxStatus  `gorm:"size:16;not null;default:ACTIVE;index" json:"status"`
	InstallationDate *time.Time `gorm:"type:date" json:"installationDate"`
	CreatedAt        time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updatedAt"`

	// Associations
	Connections []ClientConnection `gorm:"foreignKey:BoxID;constraint:OnDelete:CASCADE" json:"connections,omitempty"`
}

// BoxPatch carries the fields of a partial box update. Nil fields are left
// untouched, so InstallationDate cannot be cleared once set.
type BoxPatch struct {
	Name             *string
	Latitude         *float64
	Longitude        *float64
	SplitterType     *string
	TotalPorts       *int
	Status           *BoxStatus
	InstallationDate *time.Time
}

// Apply returns a copy of b with the patch applied. b itself is not modified.
func (p BoxPatch) Apply(b DistributionBox) DistributionBox {
	out := b
	out.Connections = nil
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Latitude != nil {
		out.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		out.Longitude = *p.Longitude
	}
	if p.SplitterType != nil {
		out.SplitterType = *p.SplitterType
	}
	if p.TotalPorts != nil {
		out.TotalPorts = *p.TotalPorts
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.InstallationDate != nil {
		d := *p.InstallationDate
		out.InstallationDate = &d
	}
	return out
}
