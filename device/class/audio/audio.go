package audio

import (
	"sync"

	"github.com/audiodev/usbaudio/device"
	"github.com/audiodev/usbaudio/pkg"
)

// Function implements a UAC2 audio function class driver.
//
// It owns the control state machine, the elastic frame buffers and the
// streaming managers, and exposes the application side of both paths:
// rendered frames arriving from the host are consumed with ReadFrames,
// capture frames destined for the host are produced with WriteFrames.
type Function struct {
	cfg  *Config
	ctrl *ControlState
	desc *descriptors

	renderRing  *Ring
	captureRing *Ring

	renderStream  *Stream
	captureStream *Stream

	// Interfaces, populated by ConfigureDevice
	ctrlIface    *device.Interface
	renderIface  *device.Interface
	captureIface *device.Interface

	mutex sync.RWMutex
	stack *device.Stack
}

// Stats is a snapshot of streaming health counters.
type Stats struct {
	RenderActive     bool
	RenderOccupancy  int    // frames buffered on the render path
	RenderOverruns   uint64 // frames dropped, host faster than application
	RenderUnderruns  uint64 // frames substituted, application faster than host
	CaptureActive    bool
	CaptureOccupancy int
	CaptureOverruns  uint64
	CaptureUnderruns uint64
	EffectiveRate    uint32 // Hz, latched at render stream start
	FeedbackRate     uint32 // Hz, most recent corrected rate
}

// New creates an audio function from the configuration. The
// configuration is validated and defaults are filled in place.
func New(cfg *Config) (*Function, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	desc, err := buildDescriptors(cfg)
	if err != nil {
		return nil, err
	}

	f := &Function{
		cfg:        cfg,
		ctrl:       NewControlState(cfg),
		desc:       desc,
		renderRing: NewRing(cfg.RingFrames, cfg.FrameBytes(), cfg.Underrun),
	}
	f.renderStream = NewStream(cfg, f.ctrl, f.renderRing, streamRender)
	if cfg.EnableCapture {
		f.captureRing = NewRing(cfg.RingFrames, cfg.FrameBytes(), cfg.Underrun)
		f.captureStream = NewStream(cfg, f.ctrl, f.captureRing, streamCapture)
	}
	return f, nil
}

// ConfigureDevice adds the audio function's interfaces to the given
// configuration: the audio control interface followed by one streaming
// interface per direction, grouped by an interface association.
// Interface numbers continue from the configuration's current count.
func (f *Function) ConfigureDevice(config *device.Configuration) error {
	base := uint8(config.NumInterfaces())

	ifaceCount := uint8(2)
	if f.cfg.EnableCapture {
		ifaceCount = 3
	}
	if err := config.AddAssociation(&device.InterfaceAssociation{
		FirstInterface:   base,
		InterfaceCount:   ifaceCount,
		FunctionClass:    FunctionClassAudio,
		FunctionSubClass: FunctionSubClassUndef,
		FunctionProtocol: FunctionProtocolAF20,
	}); err != nil {
		return err
	}

	// Audio control interface: no endpoints, one class-specific block
	ctrlIface := device.NewInterface(&device.InterfaceDescriptor{
		InterfaceNumber:   base,
		InterfaceClass:    device.ClassAudio,
		InterfaceSubClass: SubClassAudioControl,
		InterfaceProtocol: ProtocolIP20,
	})
	if err := ctrlIface.SetClassDescriptor(0, f.desc.control); err != nil {
		return err
	}
	if err := config.AddInterface(ctrlIface); err != nil {
		return err
	}

	// Render streaming interface: alternate 0 is zero-bandwidth,
	// alternate 1 carries the iso OUT data endpoint and the iso IN
	// feedback endpoint
	renderIface, err := f.addStreamingInterface(config, base+1, f.desc.renderAS)
	if err != nil {
		return err
	}
	maxPkt := uint16(f.cfg.MaxPacketBytes())
	if err := renderIface.AddEndpoint(&device.Endpoint{
		Address:       endpointAudioOut,
		Attributes:    device.EndpointTypeIsochronous | device.IsoSyncAsync | device.IsoUsageImplicit,
		MaxPacketSize: maxPkt,
		Interval:      1,
		AltSetting:    1,
		Extra:         f.desc.dataEP,
	}); err != nil {
		return err
	}
	if err := renderIface.AddEndpoint(&device.Endpoint{
		Address:       endpointFeedback,
		Attributes:    device.EndpointTypeIsochronous | device.IsoUsageFeedback,
		MaxPacketSize: FeedbackFormat1616,
		Interval:      1,
		AltSetting:    1,
	}); err != nil {
		return err
	}

	var captureIface *device.Interface
	if f.cfg.EnableCapture {
		captureIface, err = f.addStreamingInterface(config, base+2, f.desc.captureAS)
		if err != nil {
			return err
		}
		if err := captureIface.AddEndpoint(&device.Endpoint{
			Address:       endpointAudioIn,
			Attributes:    device.EndpointTypeIsochronous | device.IsoSyncAsync,
			MaxPacketSize: maxPkt,
			Interval:      1,
			AltSetting:    1,
			Extra:         f.desc.dataEP,
		}); err != nil {
			return err
		}
	}

	// Register as class driver for every interface of the function
	if err := ctrlIface.SetClassDriver(f); err != nil {
		return err
	}
	if err := renderIface.SetClassDriver(f); err != nil {
		return err
	}
	if captureIface != nil {
		if err := captureIface.SetClassDriver(f); err != nil {
			return err
		}
	}

	f.mutex.Lock()
	f.ctrlIface = ctrlIface
	f.renderIface = renderIface
	f.captureIface = captureIface
	f.mutex.Unlock()

	pkg.LogInfo(pkg.ComponentAudio, "audio function configured",
		"channels", f.cfg.Channels,
		"bits", f.cfg.SampleBits,
		"rates", len(f.cfg.SampleRates),
		"capture", f.cfg.EnableCapture)
	return nil
}

// addStreamingInterface creates a two-alternate AS interface with the
// class-specific block attached to alternate 1.
func (f *Function) addStreamingInterface(config *device.Configuration, number uint8, classDesc []byte) (*device.Interface, error) {
	iface := device.NewInterface(&device.InterfaceDescriptor{
		InterfaceNumber:   number,
		InterfaceClass:    device.ClassAudio,
		InterfaceSubClass: SubClassAudioStreaming,
		InterfaceProtocol: ProtocolIP20,
	})
	if err := iface.SetNumAlternates(2); err != nil {
		return nil, err
	}
	if err := iface.SetClassDescriptor(1, classDesc); err != nil {
		return nil, err
	}
	if err := config.AddInterface(iface); err != nil {
		return nil, err
	}
	return iface, nil
}

// Attach binds the audio function to a running stack. Must be called
// after ConfigureDevice. Bus resets return the control state to its
// defaults; stream shutdown rides on the stack returning every
// interface to alternate 0.
func (f *Function) Attach(stack *device.Stack) error {
	f.mutex.Lock()
	renderIface := f.renderIface
	captureIface := f.captureIface
	if renderIface == nil {
		f.mutex.Unlock()
		return pkg.ErrNotConfigured
	}
	f.stack = stack
	f.mutex.Unlock()

	f.renderStream.Bind(stack,
		renderIface.GetEndpoint(endpointAudioOut),
		renderIface.GetEndpoint(endpointFeedback))
	if captureIface != nil {
		f.captureStream.Bind(stack, captureIface.GetEndpoint(endpointAudioIn), nil)
	}

	stack.Device().SetOnReset(func() {
		f.ctrl.Reset()
	})
	return nil
}

// Init implements device.ClassDriver.
func (f *Function) Init(iface *device.Interface) error {
	return nil
}

// HandleSetup implements device.ClassDriver. Entity-addressed requests
// are served by the control state machine on the audio control
// interface; streaming interfaces take no class-specific requests.
func (f *Function) HandleSetup(iface *device.Interface, setup *device.SetupPacket, data []byte) ([]byte, bool, error) {
	if !setup.IsClass() || setup.Recipient() != device.RequestRecipientInterface {
		return nil, false, nil
	}

	f.mutex.RLock()
	ctrlIface := f.ctrlIface
	f.mutex.RUnlock()

	if iface != ctrlIface {
		return nil, false, nil
	}
	return f.ctrl.HandleRequest(setup, data)
}

// SetAlternate implements device.ClassDriver. Selecting alternate 1 on
// a streaming interface starts the stream; returning to alternate 0
// stops it.
func (f *Function) SetAlternate(iface *device.Interface, alt uint8) error {
	f.mutex.RLock()
	renderIface := f.renderIface
	captureIface := f.captureIface
	f.mutex.RUnlock()

	switch iface {
	case renderIface:
		if alt == 1 {
			return f.renderStream.Activate()
		}
		f.renderStream.Deactivate()
	case captureIface:
		if alt == 1 {
			return f.captureStream.Activate()
		}
		f.captureStream.Deactivate()
	}
	return nil
}

// Close implements device.ClassDriver.
func (f *Function) Close() error {
	f.renderStream.Deactivate()
	if f.captureStream != nil {
		f.captureStream.Deactivate()
	}
	f.mutex.Lock()
	f.stack = nil
	f.mutex.Unlock()
	return nil
}

// ReadFrames fills p with rendered frames from the host. It returns
// the number of real frames copied; the remainder of p is filled per
// the underrun policy. Fails when the render stream is inactive.
func (f *Function) ReadFrames(p []byte) (int, error) {
	if !f.renderStream.Active() {
		return 0, pkg.ErrStreamInactive
	}
	return f.renderRing.Read(p), nil
}

// WriteFrames queues capture frames for transmission to the host. It
// returns the number of frames accepted; frames beyond the buffer's
// free space are dropped. Fails when the capture stream is inactive.
func (f *Function) WriteFrames(p []byte) (int, error) {
	if f.captureStream == nil {
		return 0, pkg.ErrNotSupported
	}
	if !f.captureStream.Active() {
		return 0, pkg.ErrStreamInactive
	}
	return f.captureRing.Write(p), nil
}

// SampleRate returns the clock's current sample rate in Hz. During an
// active stream this may differ from the stream's latched rate.
func (f *Function) SampleRate() uint32 {
	return f.ctrl.SampleRate()
}

// Mute returns the mute state for a channel (0 = master).
func (f *Function) Mute(channel int) bool {
	return f.ctrl.Mute(channel)
}

// Volume returns the volume for a channel (0 = master) in 1/256 dB.
func (f *Function) Volume(channel int) int16 {
	return f.ctrl.Volume(channel)
}

// ClockValid returns the clock validity flag reported to the host.
func (f *Function) ClockValid() bool {
	return f.ctrl.ClockValid()
}

// SetClockValid sets the clock validity flag reported to the host.
func (f *Function) SetClockValid(valid bool) {
	f.ctrl.SetClockValid(valid)
}

// RenderActive reports whether the host is streaming to the device.
func (f *Function) RenderActive() bool {
	return f.renderStream.Active()
}

// CaptureActive reports whether the host is streaming from the device.
func (f *Function) CaptureActive() bool {
	return f.captureStream != nil && f.captureStream.Active()
}

// Config returns the validated configuration.
func (f *Function) Config() *Config {
	return f.cfg
}

// Stats returns a snapshot of the streaming counters.
func (f *Function) Stats() Stats {
	st := Stats{
		RenderActive:    f.renderStream.Active(),
		RenderOccupancy: f.renderRing.Occupancy(),
		RenderOverruns:  f.renderRing.Overruns(),
		RenderUnderruns: f.renderRing.Underruns(),
		EffectiveRate:   f.renderStream.EffectiveRate(),
		FeedbackRate:    f.renderStream.FeedbackRate(),
	}
	if f.captureRing != nil {
		st.CaptureActive = f.captureStream.Active()
		st.CaptureOccupancy = f.captureRing.Occupancy()
		st.CaptureOverruns = f.captureRing.Overruns()
		st.CaptureUnderruns = f.captureRing.Underruns()
	}
	return st
}

// Compile-time interface check
var _ device.ClassDriver = (*Function)(nil)
