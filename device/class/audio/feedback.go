package audio

import (
	"encoding/binary"
	"sync/atomic"
)

// Estimator derives the feedback rate from ring occupancy.
//
// Once per service interval the streaming manager samples the ring fill
// level and asks for a corrected rate. The correction is proportional to
// the occupancy error relative to the half-full target:
//
//	rate = nominal * (1 + error / (capacity << gainShift))
//
// so a full-capacity excursion is corrected over many intervals rather
// than one. The result is clamped to nominal +/- maxDeviation.
type Estimator struct {
	nominal   uint32 // Hz
	capacity  int64  // ring capacity in frames
	target    int64  // frames, capacity/2
	gainShift uint8
	maxDev    uint32 // Hz

	lastRate atomic.Uint32
}

// NewEstimator creates an estimator for the given nominal rate and ring
// capacity, using the configuration's gain and clamp settings.
func NewEstimator(nominal uint32, capacityFrames int, cfg *Config) *Estimator {
	maxDev := cfg.MaxRateDeviation
	if maxDev == 0 {
		maxDev = nominal / 256
	}
	e := &Estimator{
		nominal:   nominal,
		capacity:  int64(capacityFrames),
		target:    int64(capacityFrames) / 2,
		gainShift: cfg.GainShift,
		maxDev:    maxDev,
	}
	e.lastRate.Store(nominal)
	return e
}

// Nominal returns the uncorrected rate in Hz.
func (e *Estimator) Nominal() uint32 {
	return e.nominal
}

// Rate computes the corrected rate in Hz for the given occupancy.
// Occupancy at target yields the nominal rate exactly; occupancy above
// target raises the rate, below target lowers it, clamped both ways.
func (e *Estimator) Rate(occupancy int) uint32 {
	err := int64(occupancy) - e.target
	corr := int64(e.nominal) * err / (e.capacity << e.gainShift)

	rate := int64(e.nominal) + corr
	if lo := int64(e.nominal) - int64(e.maxDev); rate < lo {
		rate = lo
	}
	if hi := int64(e.nominal) + int64(e.maxDev); rate > hi {
		rate = hi
	}

	r := uint32(rate)
	e.lastRate.Store(r)
	return r
}

// LastRate returns the most recently computed rate, or the nominal rate
// if none has been computed since the last reset.
func (e *Estimator) LastRate() uint32 {
	return e.lastRate.Load()
}

// Reset discards estimator state, returning LastRate to nominal.
func (e *Estimator) Reset() {
	e.lastRate.Store(e.nominal)
}

// EncodeFeedback1616 writes the rate as a 4-byte 16.16 fixed-point
// frames-per-millisecond value in little-endian order.
func EncodeFeedback1616(buf []byte, rateHz uint32) {
	binary.LittleEndian.PutUint32(buf[:4], uint32((uint64(rateHz)<<16)/1000))
}

// EncodeFeedback1014 writes the rate as a 3-byte 10.14 fixed-point
// frames-per-millisecond value in little-endian order, the full-speed
// wire encoding.
func EncodeFeedback1014(buf []byte, rateHz uint32) {
	v := uint32((uint64(rateHz) << 14) / 1000)
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
}
