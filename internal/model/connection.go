package model

import "time"

// ClientConnection binds one client contract to one port of a distribution
// box. (BoxID, PortNumber) and ContractID are unique across the ledger; both
// are enforced by unique indexes, not only by the application checks.
type ClientConnection struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	BoxID           string     `gorm:"size:36;not null;uniqueIndex:idx_connection_box_port,priority:1" json:"ctoId"`
	PortNumber      int        `gorm:"type:smallint;not null;uniqueIndex:idx_connection_box_port,priority:2;check:chk_connection_port,port_number >= 1" json:"portNumber"`
	ContractID      string     `gorm:"size:50;not null;uniqueIndex:idx_connection_contract" json:"contractId"`
	OnuSerialNumber string     `gorm:"size:100;not null;index" json:"onuSerialNumber"`
	ConnectionDate  *time.Time `gorm:"type:date" json:"connectionDate"`
	CreatedAt       time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updatedAt"`

	// Box is the owning distribution box, loaded on reads.
	Box *DistributionBox `gorm:"foreignKey:BoxID" json:"cto,omitempty"`
}

// ConnectionPatch carries the fields of a partial connection update. A nil
// field is left untouched, so a patch cannot clear ConnectionDate.
type ConnectionPatch struct {
	BoxID           *string
	PortNumber      *int
	ContractID      *string
	OnuSerialNumber *string
	ConnectionDate  *time.Time
}

// MovesPort reports whether the patch touches the (box, port) binding.
func (p ConnectionPatch) MovesPort() bool {
	return p.BoxID != nil || p.PortNumber != nil
}

// Apply returns a copy of c with the patch applied. A nil ConnectionDate keeps
// the stored date.
func (p ConnectionPatch) Apply(c ClientConnection) ClientConnection {
	out := c
	if p.BoxID != nil {
		out.BoxID = *p.BoxID
		out.Box = nil
	}
	if p.PortNumber != nil {
		out.PortNumber = *p.PortNumber
	}
	if p.ContractID != nil {
		out.ContractID = *p.ContractID
	}
	if p.OnuSerialNumber != nil {
		out.OnuSerialNumber = *p.OnuSerialNumber
	}
	if p.ConnectionDate != nil {
		d := *p.ConnectionDate
		out.ConnectionDate = &d
	}
	return out
}
