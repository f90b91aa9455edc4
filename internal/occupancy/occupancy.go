// Package occupancy derives per-port status and per-box occupancy figures
// from boxes and their connections. Nothing here touches storage.
package occupancy

import (
	"math"
	"time"

	"cto-inventory-backend/internal/model"
)

// PortState is the binary state of a single numbered port.
type PortState string

const (
	PortOccupied  PortState = "occupied"
	PortAvailable PortState = "available"
)

// Level classifies an occupancy rate against fixed thresholds.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

const (
	mediumThreshold = 50
	highThreshold   = 85
)

// ConnectionSummary is the part of a connection shown on a port.
type ConnectionSummary struct {
	ID              string     `json:"id"`
	ContractID      string     `json:"contractId"`
	OnuSerialNumber string     `json:"onuSerialNumber"`
	ConnectionDate  *time.Time `json:"connectionDate"`
}

// Port is one entry of a box's port list.
type Port struct {
	PortNumber int                `json:"portNumber"`
	Status     PortState          `json:"status"`
	Connection *ConnectionSummary `json:"connection"`
}

// PortsStatus is the per-port view of one box.
type PortsStatus struct {
	BoxID          string `json:"ctoId"`
	BoxName        string `json:"ctoName"`
	TotalPorts     int    `json:"totalPorts"`
	OccupiedPorts  int    `json:"occupiedPorts"`
	AvailablePorts int    `json:"availablePorts"`
	Ports          []Port `json:"ports"`
}

// BoxStats is the aggregate occupancy of one box.
type BoxStats struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	Status         model.BoxStatus `json:"status"`
	SplitterType   string          `json:"splitterType"`
	TotalPorts     int             `json:"totalPorts"`
	OccupiedPorts  int             `json:"occupiedPorts"`
	AvailablePorts int             `json:"availablePorts"`
	OccupancyRate  int             `json:"occupancyRate"`
	OccupancyLevel Level           `json:"occupancyLevel"`
}

// Rate returns round-half-up(100 * occupied / total). A box without ports has
// rate 0.
func Rate(occupied, total int) int {
	if total <= 0 || occupied <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(occupied) / float64(total)))
}

// LevelFor classifies a rate: below 50 is low, below 85 is medium, the rest high.
func LevelFor(rate int) Level {
	switch {
	case rate < mediumThreshold:
		return LevelLow
	case rate < highThreshold:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// EnteredHigh reports whether going from occupied-1 to occupied connections
// moved a box of total ports into the high level.
func EnteredHigh(total, occupied int) bool {
	if occupied <= 0 {
		return false
	}
	return LevelFor(Rate(occupied, total)) == LevelHigh &&
		LevelFor(Rate(occupied-1, total)) != LevelHigh
}

// CountOccupied counts the distinct port numbers within [1, total].
// Connections left outside the range by a shrunk box are not counted.
func CountOccupied(total int, ports []int) int {
	seen := make(map[int]struct{}, len(ports))
	for _, p := range ports {
		if p >= 1 && p <= total {
			seen[p] = struct{}{}
		}
	}
	return len(seen)
}

// BuildPortsStatus lists ports 1..box.TotalPorts in ascending order, marking
// each as occupied by the matching connection or available.
func BuildPortsStatus(box model.DistributionBox, conns []model.ClientConnection) PortsStatus {
	byPort := make(map[int]model.ClientConnection, len(conns))
	for _, c := range conns {
		if c.BoxID != "" && c.BoxID != box.ID {
			continue
		}
		byPort[c.PortNumber] = c
	}

	total := box.TotalPorts
	if total < 0 {
		total = 0
	}
	ports := make([]Port, 0, total)
	occupied := 0
	for i := 1; i <= total; i++ {
		c, ok := byPort[i]
		if !ok {
			ports = append(ports, Port{PortNumber: i, Status: PortAvailable})
			continue
		}
		occupied++
		ports = append(ports, Port{
			PortNumber: i,
			Status:     PortOccupied,
			Connection: &ConnectionSummary{
				ID:              c.ID,
				ContractID:      c.ContractID,
				OnuSerialNumber: c.OnuSerialNumber,
				ConnectionDate:  c.ConnectionDate,
			},
		})
	}

	return PortsStatus{
		BoxID:          box.ID,
		BoxName:        box.Name,
		TotalPorts:     total,
		OccupiedPorts:  occupied,
		AvailablePorts: total - occupied,
		Ports:          ports,
	}
}

// BuildBoxStats computes the aggregate figures for a box with the given
// number of occupied ports.
func BuildBoxStats(box model.DistributionBox, occupied int) BoxStats {
	if occupied > box.TotalPorts {
		occupied = box.TotalPorts
	}
	if occupied < 0 {
		occupied = 0
	}
	rate := Rate(occupied, box.TotalPorts)
	return BoxStats{
		ID:             box.ID,
		Name:           box.Name,
		Latitude:       box.Latitude,
		Longitude:      box.Longitude,
		Status:         box.Status,
		SplitterType:   box.SplitterType,
		TotalPorts:     box.TotalPorts,
		OccupiedPorts:  occupied,
		AvailablePorts: box.TotalPorts - occupied,
		OccupancyRate:  rate,
		OccupancyLevel: LevelFor(rate),
	}
}
