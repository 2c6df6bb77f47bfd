package audio

import (
	"context"
	"sync"
	"time"

	"github.com/audiodev/usbaudio/device"
	"github.com/audiodev/usbaudio/pkg"
)

// streamDirection distinguishes the render path (host to device) from
// the capture path (device to host).
type streamDirection uint8

const (
	streamRender streamDirection = iota
	streamCapture
)

// Stream manages the isochronous data path for one streaming interface.
//
// A stream is inactive until the host selects the operational alternate
// setting. Activation latches the clock's current sample rate for the
// life of the stream: a SET_CUR sample rate issued mid-stream takes
// effect only after the host restarts the stream through alternate 0.
// On activation the ring is cleared and, for the render direction, a
// fresh feedback estimator is created so stale corrections never leak
// across stream restarts.
type Stream struct {
	cfg  *Config
	ctrl *ControlState
	ring *Ring
	dir  streamDirection

	stack  *device.Stack
	dataEP *device.Endpoint
	fbEP   *device.Endpoint // render only

	fbFormat int

	mutex  sync.Mutex
	active bool
	rate   uint32 // latched at activation
	est    *Estimator
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStream creates a stream over the given ring. The stream is unbound
// until Bind supplies the stack and endpoints.
func NewStream(cfg *Config, ctrl *ControlState, ring *Ring, dir streamDirection) *Stream {
	return &Stream{
		cfg:      cfg,
		ctrl:     ctrl,
		ring:     ring,
		dir:      dir,
		fbFormat: FeedbackFormat1616,
	}
}

// Bind attaches the stream to the device stack and its endpoints.
// fbEP is nil for the capture direction.
func (s *Stream) Bind(stack *device.Stack, dataEP, fbEP *device.Endpoint) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stack = stack
	s.dataEP = dataEP
	s.fbEP = fbEP
}

// SetFeedbackFormat selects the feedback wire encoding,
// FeedbackFormat1616 (default) or FeedbackFormat1014.
func (s *Stream) SetFeedbackFormat(format int) error {
	if format != FeedbackFormat1616 && format != FeedbackFormat1014 {
		return pkg.ErrInvalidParameter
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.fbFormat = format
	return nil
}

// Active reports whether the stream is running.
func (s *Stream) Active() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.active
}

// EffectiveRate returns the rate the stream is running at, or the
// clock's current rate when the stream is inactive.
func (s *Stream) EffectiveRate() uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.active {
		return s.rate
	}
	return s.ctrl.SampleRate()
}

// FeedbackRate returns the most recent feedback-corrected rate.
// Capture streams report the latched rate.
func (s *Stream) FeedbackRate() uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.est != nil {
		return s.est.LastRate()
	}
	return s.ctrl.SampleRate()
}

// Activate starts the stream at the clock's current sample rate.
// Activating an active stream is a no-op.
func (s *Stream) Activate() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.active {
		return nil
	}
	if s.stack == nil || s.dataEP == nil {
		return pkg.ErrNotConfigured
	}

	s.rate = s.ctrl.SampleRate()
	s.ring.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.active = true

	if s.dir == streamRender {
		s.est = NewEstimator(s.rate, s.ring.Capacity(), s.cfg)
		s.wg.Add(1)
		go s.renderLoop(ctx, s.rate)
		if s.fbEP != nil {
			s.wg.Add(1)
			go s.feedbackLoop(ctx, s.est, s.fbFormat)
		}
	} else {
		s.wg.Add(1)
		go s.captureLoop(ctx, s.rate)
	}

	pkg.LogInfo(pkg.ComponentStream, "stream activated",
		"direction", s.directionName(),
		"rate", s.rate)
	return nil
}

// Deactivate stops the stream and waits for its service loops to exit.
// Deactivating an inactive stream is a no-op.
func (s *Stream) Deactivate() {
	s.mutex.Lock()
	if !s.active {
		s.mutex.Unlock()
		return
	}
	s.active = false
	cancel := s.cancel
	s.cancel = nil
	s.mutex.Unlock()

	cancel()
	s.wg.Wait()

	pkg.LogInfo(pkg.ComponentStream, "stream deactivated",
		"direction", s.directionName(),
		"underruns", s.ring.Underruns(),
		"overruns", s.ring.Overruns())
}

func (s *Stream) directionName() string {
	if s.dir == streamCapture {
		return "capture"
	}
	return "render"
}

// renderLoop moves iso OUT packets from the host into the ring. Packet
// sizes vary with the host's rate adjustment; partial frames at the
// tail of a packet are discarded by the ring's frame granularity.
func (s *Stream) renderLoop(ctx context.Context, rate uint32) {
	defer s.wg.Done()

	buf := make([]byte, s.cfg.PacketBytes(rate))
	for {
		n, err := s.stack.Read(ctx, s.dataEP, buf)
		if err != nil {
			if ctx.Err() == nil {
				pkg.LogDebug(pkg.ComponentStream, "render read stopped", "error", err)
			}
			return
		}
		if n > 0 {
			s.ring.Write(buf[:n])
		}
	}
}

// feedbackLoop reports the corrected rate to the host once per
// millisecond service interval.
func (s *Stream) feedbackLoop(ctx context.Context, est *Estimator, format int) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	var buf [FeedbackFormat1616]byte
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		rate := est.Rate(s.ring.Occupancy())
		if format == FeedbackFormat1014 {
			EncodeFeedback1014(buf[:], rate)
		} else {
			EncodeFeedback1616(buf[:], rate)
		}
		if _, err := s.stack.Write(ctx, s.fbEP, buf[:format]); err != nil {
			if ctx.Err() == nil {
				pkg.LogDebug(pkg.ComponentStream, "feedback write stopped", "error", err)
			}
			return
		}
	}
}

// captureLoop sends one packet of ring data to the host per service
// interval. The fractional frame per millisecond is carried in an
// accumulator so the long-term rate is exact at rates that do not
// divide evenly by 1000.
func (s *Stream) captureLoop(ctx context.Context, rate uint32) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	frameBytes := s.cfg.FrameBytes()
	buf := make([]byte, s.cfg.PacketBytes(rate))
	whole := int(rate / 1000)
	frac := int(rate % 1000)
	acc := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frames := whole
		acc += frac
		if acc >= 1000 {
			frames++
			acc -= 1000
		}

		pkt := buf[:frames*frameBytes]
		s.ring.Read(pkt)
		if _, err := s.stack.Write(ctx, s.dataEP, pkt); err != nil {
			if ctx.Err() == nil {
				pkg.LogDebug(pkg.ComponentStream, "capture write stopped", "error", err)
			}
			return
		}
	}
}
