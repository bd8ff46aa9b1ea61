// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Keeps interpolation continuous across successive input chunks
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64 // read position, frame 0 being lastFrame when primed
	lastFrame  []int32 // one sample per channel
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]int32, channels),
	}
}

// Resample converts input samples to output sample rate using linear interpolation.
// input and output are interleaved. It returns the number of output samples written.
// output should hold at least OutputSamplesNeeded(len(input)) plus one frame.
func (r *Resampler) Resample(input []int32, output []int32) int {
	ch := r.channels
	frames := len(input) / ch
	if frames == 0 {
		return 0
	}

	total := frames
	if r.primed {
		total++
	}
	at := func(i, c int) float64 {
		if r.primed {
			if i == 0 {
				return float64(r.lastFrame[c])
			}
			i--
		}
		return float64(input[i*ch+c])
	}

	outFrames := len(output) / ch
	outIdx := 0
	for outIdx < outFrames {
		i := int(r.position)
		if i+1 >= total {
			break
		}
		frac := r.position - float64(i)
		for c := 0; c < ch; c++ {
			a, b := at(i, c), at(i+1, c)
			output[outIdx*ch+c] = int32(a + (b-a)*frac)
		}
		outIdx++
		r.position += r.ratio
	}

	// The last input frame becomes frame 0 of the next call.
	r.position -= float64(total - 1)
	if r.position < 0 {
		r.position = 0
	}
	copy(r.lastFrame, input[(frames-1)*ch:frames*ch])
	r.primed = true

	return outIdx * ch
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// Ratio is input rate over output rate.
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}
