package audio

import (
	"github.com/audiodev/usbaudio/pkg"
)

// UnderrunPolicy selects what the ring buffer substitutes for missing
// frames when a read finds fewer frames than requested.
type UnderrunPolicy uint8

const (
	// UnderrunZeroFill substitutes silence for missing frames.
	UnderrunZeroFill UnderrunPolicy = iota
	// UnderrunHoldLast repeats the most recently read frame.
	UnderrunHoldLast
)

// MaxSampleRates is the maximum number of discrete sample rates a
// configuration may declare.
const MaxSampleRates = 8

// MaxChannels is the maximum channel count per streaming interface.
const MaxChannels = 8

// Default configuration values applied by Validate.
const (
	DefaultRingFrames        = 2048
	DefaultGainShift         = 6 // correction gain 1/64
	DefaultDescriptorCeiling = 512

	// Volume bounds in 1/256 dB units: -100 dB .. 0 dB, 1 dB steps.
	DefaultVolumeMin int16 = -100 * 256
	DefaultVolumeMax int16 = 0
	DefaultVolumeRes int16 = 256
)

// Config describes an audio function. It is immutable after Validate;
// all class components reference the same Config instance.
type Config struct {
	// Channels is the channel count per frame (1..MaxChannels).
	Channels int

	// SampleBits is the PCM sample width in bits (16, 24, or 32).
	SampleBits int

	// SampleRates is the discrete set of supported rates in Hz. The
	// first entry is the default rate after reset.
	SampleRates []uint32

	// EnableCapture adds a microphone (device-to-host) streaming
	// interface alongside the render interface.
	EnableCapture bool

	// RingFrames is the elastic buffer capacity in frames.
	// Zero selects DefaultRingFrames.
	RingFrames int

	// GainShift sets the feedback correction gain to 1/(1<<GainShift)
	// of the relative occupancy error per interval. Zero selects
	// DefaultGainShift.
	GainShift uint8

	// MaxRateDeviation clamps the feedback-corrected rate to
	// nominal +/- this many Hz. Zero selects nominal/256.
	MaxRateDeviation uint32

	// Underrun selects the read-side substitution policy.
	Underrun UnderrunPolicy

	// DescriptorCeiling is the control-buffer byte limit the full
	// configuration descriptor must fit in. Zero selects
	// DefaultDescriptorCeiling.
	DescriptorCeiling int

	// Volume range in 1/256 dB units. All zero selects the defaults.
	VolumeMin int16
	VolumeMax int16
	VolumeRes int16
}

// Validate checks the configuration and fills in defaults.
// It must be called (directly or via New) before any other use.
func (c *Config) Validate() error {
	if c.Channels < 1 || c.Channels > MaxChannels {
		return pkg.ErrInvalidParameter
	}
	switch c.SampleBits {
	case 16, 24, 32:
	default:
		return pkg.ErrInvalidParameter
	}
	if len(c.SampleRates) == 0 || len(c.SampleRates) > MaxSampleRates {
		return pkg.ErrInvalidParameter
	}
	for _, r := range c.SampleRates {
		if r == 0 {
			return pkg.ErrInvalidParameter
		}
	}
	if c.RingFrames == 0 {
		c.RingFrames = DefaultRingFrames
	}
	if c.RingFrames < 2 {
		return pkg.ErrInvalidParameter
	}
	if c.GainShift == 0 {
		c.GainShift = DefaultGainShift
	}
	if c.DescriptorCeiling == 0 {
		c.DescriptorCeiling = DefaultDescriptorCeiling
	}
	if c.VolumeMin == 0 && c.VolumeMax == 0 && c.VolumeRes == 0 {
		c.VolumeMin = DefaultVolumeMin
		c.VolumeMax = DefaultVolumeMax
		c.VolumeRes = DefaultVolumeRes
	}
	if c.VolumeMin > c.VolumeMax || c.VolumeRes <= 0 {
		return pkg.ErrInvalidParameter
	}
	return nil
}

// FrameBytes returns the byte size of one PCM frame.
func (c *Config) FrameBytes() int {
	return c.Channels * c.SampleBits / 8
}

// PacketBytes returns the iso data packet size for the given rate:
// one millisecond of frames plus one spare frame of headroom.
func (c *Config) PacketBytes(rate uint32) int {
	return (int(rate)/1000 + 1) * c.FrameBytes()
}

// MaxPacketBytes returns the packet size at the highest supported rate.
func (c *Config) MaxPacketBytes() int {
	var max uint32
	for _, r := range c.SampleRates {
		if r > max {
			max = r
		}
	}
	return c.PacketBytes(max)
}

// DefaultRate returns the rate selected after reset.
func (c *Config) DefaultRate() uint32 {
	return c.SampleRates[0]
}

// SupportsRate reports whether rate is in the configured set.
func (c *Config) SupportsRate(rate uint32) bool {
	for _, r := range c.SampleRates {
		if r == rate {
			return true
		}
	}
	return false
}
