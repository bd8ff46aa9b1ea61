// ABOUTME: Regroups arbitrary sample blocks into fixed-size codec frames
// ABOUTME: Bridges 8ms ODAS hops and 20ms Opus frames
package encode

// Chunker accumulates samples and hands them out in blocks of a fixed size.
type Chunker struct {
	size    int
	pending []int32
}

// NewChunker returns a chunker producing blocks of size samples.
func NewChunker(size int) *Chunker {
	return &Chunker{size: size, pending: make([]int32, 0, size*2)}
}

// Push appends samples and returns every complete block now available.
// Returned blocks are freshly allocated.
func (c *Chunker) Push(samples []int32) [][]int32 {
	c.pending = append(c.pending, samples...)

	var blocks [][]int32
	for len(c.pending) >= c.size {
		block := make([]int32, c.size)
		copy(block, c.pending[:c.size])
		blocks = append(blocks, block)
		c.pending = c.pending[c.size:]
	}

	// Move the remainder to the front so the backing array does not grow forever.
	if len(c.pending) > 0 && cap(c.pending)-len(c.pending) < c.size {
		rest := make([]int32, len(c.pending), c.size*2)
		copy(rest, c.pending)
		c.pending = rest
	}
	return blocks
}

// Pending is the number of samples waiting for a full block.
func (c *Chunker) Pending() int {
	return len(c.pending)
}

// Reset drops pending samples.
func (c *Chunker) Reset() {
	c.pending = c.pending[:0]
}
