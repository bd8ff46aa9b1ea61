// ABOUTME: Channel and rate conversion wrappers for sources
// ABOUTME: Downmixes to mono and resamples to the simulated stream rate
package source

import "github.com/lisa-project/lisa-odas/pkg/audio/resample"

// Mono averages all channels of a source.
type Mono struct {
	source Source
	buf    []int32
}

// NewMono wraps source.
func NewMono(source Source) *Mono {
	return &Mono{source: source}
}

func (m *Mono) Read(samples []int32) (int, error) {
	ch := m.source.Channels()
	need := len(samples) * ch
	if cap(m.buf) < need {
		m.buf = make([]int32, need)
	}

	n, err := m.source.Read(m.buf[:need])
	frames := n / ch
	for i := 0; i < frames; i++ {
		var sum int64
		for c := 0; c < ch; c++ {
			sum += int64(m.buf[i*ch+c])
		}
		samples[i] = int32(sum / int64(ch))
	}
	return frames, err
}

func (m *Mono) SampleRate() int { return m.source.SampleRate() }
func (m *Mono) Channels() int   { return 1 }
func (m *Mono) Name() string    { return m.source.Name() }
func (m *Mono) Close() error    { return m.source.Close() }

// Resampled wraps a Source and resamples to a target sample rate
type Resampled struct {
	source     Source
	resampler  *resample.Resampler
	targetRate int
	input      []int32
	output     []int32
	pending    []int32
}

// NewResampled creates a resampling wrapper around an audio source
func NewResampled(source Source, targetRate int) *Resampled {
	return &Resampled{
		source:     source,
		resampler:  resample.New(source.SampleRate(), targetRate, source.Channels()),
		targetRate: targetRate,
	}
}

func (r *Resampled) Read(samples []int32) (int, error) {
	ch := r.source.Channels()

	for len(r.pending) < len(samples) {
		need := r.resampler.InputSamplesNeeded(len(samples)-len(r.pending)) + ch
		if cap(r.input) < need {
			r.input = make([]int32, need)
		}

		n, err := r.source.Read(r.input[:need])
		n -= n % ch
		if n > 0 {
			outCap := r.resampler.OutputSamplesNeeded(n) + 2*ch
			if cap(r.output) < outCap {
				r.output = make([]int32, outCap)
			}
			out := r.resampler.Resample(r.input[:n], r.output[:outCap])
			r.pending = append(r.pending, r.output[:out]...)
		}
		if err != nil {
			if len(r.pending) == 0 {
				return 0, err
			}
			break
		}
		if n == 0 {
			break
		}
	}

	copied := copy(samples, r.pending)
	r.pending = r.pending[:copy(r.pending, r.pending[copied:])]
	return copied, nil
}

func (r *Resampled) SampleRate() int { return r.targetRate }
func (r *Resampled) Channels() int   { return r.source.Channels() }
func (r *Resampled) Name() string    { return r.source.Name() }
func (r *Resampled) Close() error    { return r.source.Close() }
