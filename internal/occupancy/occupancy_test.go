package occupancy

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"cto-inventory-backend/internal/model"
)

func TestLevelFor(t *testing.T) {
	for rate := 0; rate <= 100; rate++ {
		want := LevelHigh
		switch {
		case rate < 50:
			want = LevelLow
		case rate < 85:
			want = LevelMedium
		}
		assert.Equal(t, want, LevelFor(rate), "rate %d", rate)
	}
}

func TestRate(t *testing.T) {
	testCases := []struct {
		occupied, total, want int
	}{
		{0, 8, 0},
		{1, 8, 13}, // 12.5 rounds up
		{4, 8, 50},
		{7, 8, 88},
		{8, 8, 100},
		{1, 3, 33},
		{2, 3, 67},
		{1, 200, 1}, // 0.5 rounds up
		{3, 0, 0},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, Rate(tc.occupied, tc.total), "%d/%d", tc.occupied, tc.total)
	}
}

func TestRate_MonotonicInOccupied(t *testing.T) {
	for _, total := range []int{1, 2, 7, 8, 16, 32, 64} {
		prev := -1
		for occupied := 0; occupied <= total; occupied++ {
			r := Rate(occupied, total)
			assert.GreaterOrEqual(t, r, prev, "total %d occupied %d", total, occupied)
			prev = r
		}
		assert.Equal(t, 100, prev)
	}
}

func TestEnteredHigh(t *testing.T) {
	// 8 ports: 6/8=75 medium, 7/8=88 high
	assert.False(t, EnteredHigh(8, 6))
	assert.True(t, EnteredHigh(8, 7))
	assert.False(t, EnteredHigh(8, 8), "already high before the last connection")
	assert.False(t, EnteredHigh(8, 0))
	assert.True(t, EnteredHigh(1, 1))
}

func TestBuildPortsStatus_ContiguousPorts(t *testing.T) {
	box := model.DistributionBox{ID: "b1", Name: "CTO-01", TotalPorts: 8}
	conns := []model.ClientConnection{
		{ID: "c1", BoxID: "b1", PortNumber: 3, ContractID: "C-1", OnuSerialNumber: "ZTEG1"},
		{ID: "c2", BoxID: "b1", PortNumber: 8, ContractID: "C-2", OnuSerialNumber: "ZTEG2"},
	}

	got := BuildPortsStatus(box, conns)

	assert.Equal(t, "b1", got.BoxID)
	assert.Equal(t, "CTO-01", got.BoxName)
	assert.Equal(t, 8, got.TotalPorts)
	assert.Equal(t, 2, got.OccupiedPorts)
	assert.Equal(t, 6, got.AvailablePorts)
	assert.Len(t, got.Ports, 8)
	for i, p := range got.Ports {
		assert.Equal(t, i+1, p.PortNumber)
	}

	want := Port{
		PortNumber: 3,
		Status:     PortOccupied,
		Connection: &ConnectionSummary{ID: "c1", ContractID: "C-1", OnuSerialNumber: "ZTEG1"},
	}
	if diff := cmp.Diff(want, got.Ports[2]); diff != "" {
		t.Errorf("port 3 mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, PortAvailable, got.Ports[0].Status)
	assert.Nil(t, got.Ports[0].Connection)
}

func TestBuildPortsStatus_IgnoresOutOfRangeConnections(t *testing.T) {
	// The box was shrunk from 8 to 4 ports while port 6 was in use.
	box := model.DistributionBox{ID: "b1", Name: "CTO-01", TotalPorts: 4}
	conns := []model.ClientConnection{
		{ID: "c1", BoxID: "b1", PortNumber: 1, ContractID: "C-1"},
		{ID: "c6", BoxID: "b1", PortNumber: 6, ContractID: "C-6"},
	}

	got := BuildPortsStatus(box, conns)

	assert.Len(t, got.Ports, 4)
	assert.Equal(t, 1, got.OccupiedPorts)
	assert.Equal(t, got.TotalPorts, got.OccupiedPorts+got.AvailablePorts)
}

func TestBuildPortsStatus_EmptyBox(t *testing.T) {
	got := BuildPortsStatus(model.DistributionBox{ID: "b1", TotalPorts: 16}, nil)

	assert.Len(t, got.Ports, 16)
	assert.Equal(t, 0, got.OccupiedPorts)
	assert.Equal(t, 16, got.AvailablePorts)
}

func TestCountOccupied(t *testing.T) {
	assert.Equal(t, 0, CountOccupied(8, nil))
	assert.Equal(t, 2, CountOccupied(8, []int{1, 8}))
	assert.Equal(t, 1, CountOccupied(4, []int{2, 6, 0}))
	assert.Equal(t, 1, CountOccupied(4, []int{2, 2}))
}

func TestBuildBoxStats(t *testing.T) {
	box := model.DistributionBox{
		ID: "b1", Name: "CTO-01", Latitude: -23.55, Longitude: -46.63,
		SplitterType: "1x8", TotalPorts: 8, Status: model.BoxStatusActive,
	}

	got := BuildBoxStats(box, 1)
	assert.Equal(t, 1, got.OccupiedPorts)
	assert.Equal(t, 7, got.AvailablePorts)
	assert.Equal(t, 13, got.OccupancyRate)
	assert.Equal(t, LevelLow, got.OccupancyLevel)
	assert.Equal(t, model.BoxStatusActive, got.Status)

	got = BuildBoxStats(box, 7)
	assert.Equal(t, 88, got.OccupancyRate)
	assert.Equal(t, LevelHigh, got.OccupancyLevel)

	got = BuildBoxStats(box, 4)
	assert.Equal(t, LevelMedium, got.OccupancyLevel)
}
