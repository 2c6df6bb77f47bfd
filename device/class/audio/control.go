package audio

import (
	"encoding/binary"
	"sync"

	"github.com/audiodev/usbaudio/device"
	"github.com/audiodev/usbaudio/pkg"
)

// maxRangeBytes is the largest RANGE payload: the layout-3 sampling
// frequency report with one 12-byte subrange per supported rate.
const maxRangeBytes = 2 + 12*MaxSampleRates

// ControlState holds the mutable per-unit control model: current sample
// rate and clock validity for the clock source, mute and volume per
// channel for the feature unit. Index 0 is the master channel.
//
// SET requests mutate the state synchronously before the control
// transfer completes; malformed or out-of-range requests leave it
// untouched and stall the transfer.
type ControlState struct {
	cfg *Config

	mutex      sync.RWMutex
	sampleRate uint32
	clockValid bool
	mute       [MaxChannels + 1]bool
	volume     [MaxChannels + 1]int16

	// Response scratch buffer; requests are dispatched one at a time
	// from the control loop.
	respBuf [maxRangeBytes]byte
}

// NewControlState creates control state with the reset defaults: the
// configuration's first rate, clock valid, unmuted, volume 0 dB.
func NewControlState(cfg *Config) *ControlState {
	s := &ControlState{cfg: cfg}
	s.Reset()
	return s
}

// Reset restores the post-bus-reset defaults.
func (s *ControlState) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sampleRate = s.cfg.DefaultRate()
	s.clockValid = true
	for i := range s.mute {
		s.mute[i] = false
		s.volume[i] = 0
	}
}

// SampleRate returns the currently selected rate in Hz.
func (s *ControlState) SampleRate() uint32 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.sampleRate
}

// ClockValid returns the clock validity flag.
func (s *ControlState) ClockValid() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.clockValid
}

// SetClockValid sets the clock validity reported to the host.
func (s *ControlState) SetClockValid(valid bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.clockValid = valid
}

// Mute returns the mute flag for a channel (0 = master).
func (s *ControlState) Mute(channel int) bool {
	if channel < 0 || channel > s.cfg.Channels {
		return false
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.mute[channel]
}

// Volume returns the volume for a channel (0 = master) in 1/256 dB.
func (s *ControlState) Volume(channel int) int16 {
	if channel < 0 || channel > s.cfg.Channels {
		return 0
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.volume[channel]
}

// HandleRequest processes a class-specific control request addressed to
// the audio control interface. It returns the response payload for
// device-to-host requests, whether the request was recognized, and an
// error when the transfer must be stalled.
func (s *ControlState) HandleRequest(setup *device.SetupPacket, data []byte) ([]byte, bool, error) {
	entity := uint8(setup.Index >> 8)
	selector := uint8(setup.Value >> 8)
	channel := uint8(setup.Value)

	switch setup.Request {
	case RequestCUR:
		if setup.IsDeviceToHost() {
			resp, err := s.getCur(entity, selector, channel)
			return resp, true, err
		}
		return nil, true, s.setCur(entity, selector, channel, data)

	case RequestRange:
		if !setup.IsDeviceToHost() {
			return nil, true, pkg.ErrMalformedRequest
		}
		resp, err := s.getRange(entity, selector)
		return resp, true, err
	}
	return nil, false, nil
}

// getCur serves GET_CUR for the known entities.
func (s *ControlState) getCur(entity, selector, channel uint8) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	switch entity {
	case EntityClockSource:
		switch selector {
		case ClockSelectorSamFreq:
			binary.LittleEndian.PutUint32(s.respBuf[:4], s.sampleRate)
			return s.respBuf[:4], nil
		case ClockSelectorClockValid:
			s.respBuf[0] = 0
			if s.clockValid {
				s.respBuf[0] = 1
			}
			return s.respBuf[:1], nil
		}
		return nil, pkg.ErrMalformedRequest

	case EntityFeatureUnit:
		if int(channel) > s.cfg.Channels {
			return nil, pkg.ErrMalformedRequest
		}
		switch selector {
		case FeatureSelectorMute:
			s.respBuf[0] = 0
			if s.mute[channel] {
				s.respBuf[0] = 1
			}
			return s.respBuf[:1], nil
		case FeatureSelectorVolume:
			binary.LittleEndian.PutUint16(s.respBuf[:2], uint16(s.volume[channel]))
			return s.respBuf[:2], nil
		}
		return nil, pkg.ErrMalformedRequest
	}
	return nil, pkg.ErrUnknownEntity
}

// setCur serves SET_CUR. The payload length must match the selector
// exactly and the value must lie within the configured range; otherwise
// the state is left unchanged.
func (s *ControlState) setCur(entity, selector, channel uint8, data []byte) error {
	switch entity {
	case EntityClockSource:
		switch selector {
		case ClockSelectorSamFreq:
			if len(data) != 4 {
				return pkg.ErrMalformedRequest
			}
			rate := binary.LittleEndian.Uint32(data)
			if !s.cfg.SupportsRate(rate) {
				return pkg.ErrValueOutOfRange
			}
			s.mutex.Lock()
			s.sampleRate = rate
			s.mutex.Unlock()
			pkg.LogDebug(pkg.ComponentControl, "sample rate set", "rate", rate)
			return nil
		case ClockSelectorClockValid:
			// Read-only control
			return pkg.ErrMalformedRequest
		}
		return pkg.ErrMalformedRequest

	case EntityFeatureUnit:
		if int(channel) > s.cfg.Channels {
			return pkg.ErrMalformedRequest
		}
		switch selector {
		case FeatureSelectorMute:
			if len(data) != 1 {
				return pkg.ErrMalformedRequest
			}
			s.mutex.Lock()
			s.mute[channel] = data[0] != 0
			s.mutex.Unlock()
			pkg.LogDebug(pkg.ComponentControl, "mute set",
				"channel", channel, "mute", data[0] != 0)
			return nil
		case FeatureSelectorVolume:
			if len(data) != 2 {
				return pkg.ErrMalformedRequest
			}
			vol := int16(binary.LittleEndian.Uint16(data))
			if vol < s.cfg.VolumeMin || vol > s.cfg.VolumeMax {
				return pkg.ErrValueOutOfRange
			}
			s.mutex.Lock()
			s.volume[channel] = vol
			s.mutex.Unlock()
			pkg.LogDebug(pkg.ComponentControl, "volume set",
				"channel", channel, "volume", vol)
			return nil
		}
		return pkg.ErrMalformedRequest
	}
	return pkg.ErrUnknownEntity
}

// getRange serves GET_RANGE. The sampling frequency range uses the
// layout-3 encoding (4-byte fields) with one MIN=MAX subrange per
// discrete supported rate; volume uses layout-2 (2-byte fields) with a
// single min/max/res triple. The report depends only on the
// configuration, never on prior SET_CUR calls.
func (s *ControlState) getRange(entity, selector uint8) ([]byte, error) {
	switch entity {
	case EntityClockSource:
		if selector != ClockSelectorSamFreq {
			return nil, pkg.ErrMalformedRequest
		}
		n := len(s.cfg.SampleRates)
		binary.LittleEndian.PutUint16(s.respBuf[0:2], uint16(n))
		off := 2
		for _, rate := range s.cfg.SampleRates {
			binary.LittleEndian.PutUint32(s.respBuf[off:off+4], rate)   // dMIN
			binary.LittleEndian.PutUint32(s.respBuf[off+4:off+8], rate) // dMAX
			binary.LittleEndian.PutUint32(s.respBuf[off+8:off+12], 0)   // dRES
			off += 12
		}
		return s.respBuf[:off], nil

	case EntityFeatureUnit:
		if selector != FeatureSelectorVolume {
			// Mute is a boolean control with no range report
			return nil, pkg.ErrMalformedRequest
		}
		binary.LittleEndian.PutUint16(s.respBuf[0:2], 1) // wNumSubRanges
		binary.LittleEndian.PutUint16(s.respBuf[2:4], uint16(s.cfg.VolumeMin))
		binary.LittleEndian.PutUint16(s.respBuf[4:6], uint16(s.cfg.VolumeMax))
		binary.LittleEndian.PutUint16(s.respBuf[6:8], uint16(s.cfg.VolumeRes))
		return s.respBuf[:8], nil
	}
	return nil, pkg.ErrUnknownEntity
}
