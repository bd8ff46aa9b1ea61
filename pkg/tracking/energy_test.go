// ABOUTME: Tests for the direction-of-arrival energy map
// ABOUTME: Checks angle conversion, accumulation, clamping and level mapping
package tracking

import (
	"math"
	"testing"
)

func TestDirection(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z float64
		az, el  float64
	}{
		{"front", 1, 0, 0, 0, 0},
		{"left", 0, 1, 0, 90, 0},
		{"right", 0, -1, 0, 270, 0},
		{"up", 0, 0, 1, 0, 90},
		{"below", math.Sqrt2 / 2, 0, -math.Sqrt2 / 2, 0, -45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			az, el := Direction(tt.x, tt.y, tt.z)
			if math.Abs(az-tt.az) > 1e-9 || math.Abs(el-tt.el) > 1e-9 {
				t.Errorf("Direction = (%v, %v), want (%v, %v)", az, el, tt.az, tt.el)
			}
		})
	}
}

func TestBin(t *testing.T) {
	if Bin(0) != 0 || Bin(95) != 9 || Bin(359.9) != 35 || Bin(360) != 35 {
		t.Errorf("Bin mapping wrong: %d %d %d %d", Bin(0), Bin(95), Bin(359.9), Bin(360))
	}
}

func TestEnergyAccumulatesAndClamps(t *testing.T) {
	var m EnergyMap
	m.Add(SSLSource{X: 0, Y: 1, Z: 0, E: 1})
	if m.Azimuth[9] != 20 || m.Elevation[9] != 0 {
		t.Fatalf("after one add: az=%d el=%d", m.Azimuth[9], m.Elevation[9])
	}

	msg := SSL{Sources: []SSLSource{{X: 0, Y: 1, Z: 0, E: 1}}}
	for i := 0; i < 20; i++ {
		m.Apply(msg)
	}
	if m.Azimuth[9] != MaxEnergy {
		t.Errorf("Azimuth[9] = %d, want %d", m.Azimuth[9], MaxEnergy)
	}
	if m.Peak() != 9 {
		t.Errorf("Peak() = %d, want 9", m.Peak())
	}
}

func TestEnergyDecay(t *testing.T) {
	var m EnergyMap
	m.Azimuth[3] = 2
	m.Elevation[3] = 1
	m.Decay()
	m.Decay()
	if m.Azimuth[3] != 0 || m.Elevation[3] != 0 {
		t.Errorf("after decay: az=%d el=%d", m.Azimuth[3], m.Elevation[3])
	}
	if m.Peak() != -1 {
		t.Errorf("Peak() on empty map = %d", m.Peak())
	}
}

func TestEnergyBelowHorizonStaysNonNegative(t *testing.T) {
	var m EnergyMap
	m.Add(SSLSource{X: math.Sqrt2 / 2, Y: 0, Z: -math.Sqrt2 / 2, E: 1})
	if m.Elevation[0] != 0 {
		t.Errorf("Elevation[0] = %d, want 0", m.Elevation[0])
	}
	if m.Azimuth[0] != 14 {
		t.Errorf("Azimuth[0] = %d, want 14", m.Azimuth[0])
	}
}

func TestLevels(t *testing.T) {
	var m EnergyMap
	m.Azimuth[0] = MaxEnergy
	m.Azimuth[1] = 20
	m.Elevation[2] = 100

	az, el := m.Levels(MaxBrightness)
	if az[0] != 50 {
		t.Errorf("full bin level = %d, want 50", az[0])
	}
	if az[1] != 0 {
		t.Errorf("weak bin level = %d, want 0", az[1])
	}
	if el[2] != 25 {
		t.Errorf("elevation level = %d, want 25", el[2])
	}
}
