// ABOUTME: Direction-of-arrival energy map fed by SSL messages
// ABOUTME: Accumulates energy per azimuth bin with slow decay, for ring displays
package tracking

import "math"

// Energy map tuning, matching the LED ring driver on the MATRIX boards.
const (
	EnergyBins    = 36  // 10 degrees per bin
	MaxEnergy     = 200 // smoothness ceiling per bin
	EnergyStep    = 20  // sensitivity: added per unit of source energy
	EnergyDecay   = 1   // removed from every bin per source update
	MinLevel      = 10  // levels below this are shown as off
	MaxBrightness = 50  // default full-scale level
)

// EnergyMap holds an azimuth and an elevation component per direction bin.
// It is not safe for concurrent use.
type EnergyMap struct {
	Azimuth   [EnergyBins]int
	Elevation [EnergyBins]int
}

// Direction converts a unit vector into azimuth in [0, 360) and elevation
// in [-90, 90], both in degrees.
func Direction(x, y, z float64) (azimuth, elevation float64) {
	azimuth = math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
	elevation = 90 - math.Mod(math.Atan2(math.Sqrt(x*x+y*y), z)*180/math.Pi+180, 180)
	return azimuth, elevation
}

// Bin maps an azimuth in degrees onto its bin index.
func Bin(azimuth float64) int {
	i := int(azimuth / 360 * EnergyBins)
	if i >= EnergyBins {
		i = EnergyBins - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Decay lowers every non-zero bin by one step.
func (m *EnergyMap) Decay() {
	for i := range m.Azimuth {
		if m.Azimuth[i] > 0 {
			m.Azimuth[i] -= EnergyDecay
		}
		if m.Elevation[i] > 0 {
			m.Elevation[i] -= EnergyDecay
		}
	}
}

// Add credits one source to the bin of its azimuth.
func (m *EnergyMap) Add(src SSLSource) {
	az, el := Direction(src.X, src.Y, src.Z)
	i := Bin(az)
	rad := el * math.Pi / 180

	m.Azimuth[i] = clampEnergy(m.Azimuth[i] + int(EnergyStep*src.E*math.Cos(rad)))
	m.Elevation[i] = clampEnergy(m.Elevation[i] + int(EnergyStep*src.E*math.Sin(rad)))
}

// Sources below the horizon have a negative elevation component; bins never go below zero.
func clampEnergy(v int) int {
	return max(0, min(v, MaxEnergy))
}

// Apply folds one SSL message in: a decay step before every source.
func (m *EnergyMap) Apply(msg SSL) {
	for _, src := range msg.Sources {
		m.Decay()
		m.Add(src)
	}
}

// Levels scales both components to 0..brightness, zeroing anything below MinLevel.
func (m *EnergyMap) Levels(brightness int) (azimuth, elevation [EnergyBins]int) {
	for i := 0; i < EnergyBins; i++ {
		azimuth[i] = level(m.Azimuth[i], brightness)
		elevation[i] = level(m.Elevation[i], brightness)
	}
	return azimuth, elevation
}

func level(v, brightness int) int {
	l := v * brightness / MaxEnergy
	if l < MinLevel {
		return 0
	}
	return l
}

// Peak returns the bin with the most azimuth energy, or -1 when all are empty.
func (m *EnergyMap) Peak() int {
	best, at := 0, -1
	for i, v := range m.Azimuth {
		if v > best {
			best, at = v, i
		}
	}
	return at
}
