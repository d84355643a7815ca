package pending

import "fmt"

// Buffer holds one dispatch round's frozen handler ids. It is owned by
// the pool and must not outlive the Enter/Exit pair that produced it.
type Buffer struct {
	ids []int
}

// IDs returns the snapshot taken at Enter time.
func (b *Buffer) IDs() []int { return b.ids }

// Pool is a growable stack of reusable snapshot buffers indexed by
// re-entrancy depth. The zero value is ready to use.
type Pool struct {
	bufs  []*Buffer
	depth int
}

// Enter freezes ids into the buffer for the current depth, growing the
// pool if this is a new maximum depth, and pushes one level.
func (p *Pool) Enter(ids []int) *Buffer {
	if p.depth >= len(p.bufs) {
		p.bufs = append(p.bufs, &Buffer{})
	}

	b := p.bufs[p.depth]
	p.depth++

	b.ids = append(b.ids[:0], ids...)
	return b
}

// Exit pops one level. The released buffer must be the one at the top of
// the stack; anything else means enter/exit pairing broke and the
// dispatcher state can no longer be trusted.
func (p *Pool) Exit(b *Buffer) {
	if p.depth == 0 || p.bufs[p.depth-1] != b {
		panic(fmt.Sprintf("pending: buffer released out of order at depth %d", p.depth))
	}
	p.depth--
}

// Depth returns the current re-entrancy depth.
func (p *Pool) Depth() int { return p.depth }
