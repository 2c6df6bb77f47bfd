package audio

import (
	"sync/atomic"
)

// Ring is a single-producer/single-consumer elastic frame buffer.
//
// The producer only advances the write cursor and the consumer only
// advances the read cursor; each side reads the other's cursor but never
// writes it, so no lock is needed. Cursors count frames monotonically;
// the difference is the fill level. Write never blocks: frames that do
// not fit are dropped and counted as overrun. Read never blocks: missing
// frames are substituted per the configured policy and counted as
// underrun.
type Ring struct {
	buf        []byte
	frameBytes int
	capacity   uint64 // frames

	wr atomic.Uint64 // frames produced
	rd atomic.Uint64 // frames consumed

	overruns  atomic.Uint64
	underruns atomic.Uint64

	policy UnderrunPolicy
	last   []byte // most recently read frame, consumer-owned
}

// NewRing creates a ring holding capacityFrames frames of frameBytes each.
func NewRing(capacityFrames, frameBytes int, policy UnderrunPolicy) *Ring {
	return &Ring{
		buf:        make([]byte, capacityFrames*frameBytes),
		frameBytes: frameBytes,
		capacity:   uint64(capacityFrames),
		policy:     policy,
		last:       make([]byte, frameBytes),
	}
}

// Capacity returns the capacity in frames.
func (r *Ring) Capacity() int {
	return int(r.capacity)
}

// FrameBytes returns the byte size of one frame.
func (r *Ring) FrameBytes() int {
	return r.frameBytes
}

// Occupancy returns the current fill level in frames.
func (r *Ring) Occupancy() int {
	return int(r.wr.Load() - r.rd.Load())
}

// Write copies up to len(p)/frameBytes frames into the ring and returns
// the number of frames stored. Frames beyond the free space are dropped
// and counted as overrun. Producer side only.
func (r *Ring) Write(p []byte) int {
	frames := uint64(len(p) / r.frameBytes)
	if frames == 0 {
		return 0
	}

	wr := r.wr.Load()
	rd := r.rd.Load()
	free := r.capacity - (wr - rd)

	n := frames
	if n > free {
		r.overruns.Add(frames - free)
		n = free
	}
	if n == 0 {
		return 0
	}

	pos := (wr % r.capacity) * uint64(r.frameBytes)
	total := n * uint64(r.frameBytes)
	first := uint64(len(r.buf)) - pos
	if first > total {
		first = total
	}
	copy(r.buf[pos:pos+first], p[:first])
	copy(r.buf, p[first:total])

	r.wr.Store(wr + n)
	return int(n)
}

// Read fills p with frames from the ring and returns the number of real
// frames copied. If fewer frames are available than requested, the
// remainder of p is zero-filled or holds the last frame per the
// configured policy, and the shortfall is counted as underrun.
// Consumer side only.
func (r *Ring) Read(p []byte) int {
	want := uint64(len(p) / r.frameBytes)
	if want == 0 {
		return 0
	}

	wr := r.wr.Load()
	rd := r.rd.Load()
	avail := wr - rd

	n := want
	if n > avail {
		n = avail
	}

	if n > 0 {
		pos := (rd % r.capacity) * uint64(r.frameBytes)
		total := n * uint64(r.frameBytes)
		first := uint64(len(r.buf)) - pos
		if first > total {
			first = total
		}
		copy(p[:first], r.buf[pos:pos+first])
		copy(p[first:total], r.buf)

		copy(r.last, p[(n-1)*uint64(r.frameBytes):n*uint64(r.frameBytes)])
		r.rd.Store(rd + n)
	}

	if n < want {
		r.underruns.Add(want - n)
		r.fill(p[n*uint64(r.frameBytes) : want*uint64(r.frameBytes)])
	}
	return int(n)
}

// fill substitutes missing frames per the underrun policy.
func (r *Ring) fill(p []byte) {
	if r.policy == UnderrunHoldLast {
		for off := 0; off < len(p); off += r.frameBytes {
			copy(p[off:off+r.frameBytes], r.last)
		}
		return
	}
	for i := range p {
		p[i] = 0
	}
}

// Overruns returns the total number of dropped frames.
func (r *Ring) Overruns() uint64 {
	return r.overruns.Load()
}

// Underruns returns the total number of substituted frames.
func (r *Ring) Underruns() uint64 {
	return r.underruns.Load()
}

// Reset discards all buffered frames and clears the hold-last frame.
// Must not be called concurrently with Write or Read.
func (r *Ring) Reset() {
	r.wr.Store(0)
	r.rd.Store(0)
	for i := range r.last {
		r.last[i] = 0
	}
}
