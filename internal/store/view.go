package store

import (
	"context"

	"cto-inventory-backend/internal/model"
	"cto-inventory-backend/internal/occupancy"
)

// PortsStatus lists every port of a box with the connection bound to it.
func (s *gormStore) PortsStatus(ctx context.Context, boxID string) (occupancy.PortsStatus, error) {
	box, err := s.GetBox(ctx, boxID)
	if err != nil {
		return occupancy.PortsStatus{}, err
	}
	return occupancy.BuildPortsStatus(box, box.Connections), nil
}

// OccupancyStats aggregates occupancy for every box matching the filter.
func (s *gormStore) OccupancyStats(ctx context.Context, status *model.BoxStatus) ([]occupancy.BoxStats, error) {
	boxes, err := s.ListBoxes(ctx, status)
	if err != nil {
		return nil, err
	}

	stats := make([]occupancy.BoxStats, 0, len(boxes))
	for _, b := range boxes {
		stats = append(stats, occupancy.BuildBoxStats(b, occupiedPorts(b)))
	}
	return stats, nil
}

// BoxStats aggregates occupancy for a single box.
func (s *gormStore) BoxStats(ctx context.Context, boxID string) (occupancy.BoxStats, error) {
	box, err := s.GetBox(ctx, boxID)
	if err != nil {
		return occupancy.BoxStats{}, err
	}
	return occupancy.BuildBoxStats(box, occupiedPorts(box)), nil
}

func occupiedPorts(b model.DistributionBox) int {
	ports := make([]int, len(b.Connections))
	for i, c := range b.Connections {
		ports[i] = c.PortNumber
	}
	return occupancy.CountOccupied(b.TotalPorts, ports)
}
