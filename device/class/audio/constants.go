package audio

// Audio function class codes (UAC2 A.1, A.2).
const (
	FunctionClassAudio    = 0x01 // Audio function class
	FunctionSubClassUndef = 0x00 // Undefined function subclass
	FunctionProtocolAF20  = 0x20 // Audio function protocol version 2.0
)

// Audio interface subclasses (UAC2 A.5).
const (
	SubClassAudioControl   = 0x01 // Audio control interface
	SubClassAudioStreaming = 0x02 // Audio streaming interface
)

// Audio interface protocol (UAC2 A.6).
const ProtocolIP20 = 0x20 // Interface protocol version 2.0

// Audio control interface descriptor subtypes (UAC2 A.9).
const (
	ACSubtypeHeader         = 0x01 // Class-specific AC header
	ACSubtypeInputTerminal  = 0x02 // Input terminal
	ACSubtypeOutputTerminal = 0x03 // Output terminal
	ACSubtypeFeatureUnit    = 0x06 // Feature unit
	ACSubtypeClockSource    = 0x0A // Clock source
)

// Audio streaming interface descriptor subtypes (UAC2 A.10).
const (
	ASSubtypeGeneral    = 0x01 // AS general
	ASSubtypeFormatType = 0x02 // Format type
)

// Class-specific endpoint descriptor subtype (UAC2 A.13).
const EPSubtypeGeneral = 0x01

// Class-specific request codes (UAC2 A.14).
const (
	RequestCUR   = 0x01 // Current value
	RequestRange = 0x02 // Supported range
)

// Clock source control selectors (UAC2 A.17.1).
const (
	ClockSelectorSamFreq    = 0x01 // Sampling frequency
	ClockSelectorClockValid = 0x02 // Clock validity (read-only)
)

// Feature unit control selectors (UAC2 A.17.7).
const (
	FeatureSelectorMute   = 0x01 // Mute (1 byte boolean)
	FeatureSelectorVolume = 0x02 // Volume (2 bytes signed, 1/256 dB)
)

// Terminal types (USB Audio Terminal Types specification).
const (
	TerminalTypeUSBStreaming = 0x0101 // USB streaming terminal
	TerminalTypeMicrophone   = 0x0201 // Generic microphone
	TerminalTypeSpeaker      = 0x0301 // Generic speaker
)

// Format type codes (UAC2 Formats A.1) and format bits (A.2.1).
const (
	FormatTypeI  = 0x01       // Type I (PCM-style) formats
	FormatBitPCM = 0x00000001 // PCM format bit in bmFormats
)

// Function category codes (UAC2 A.7).
const (
	CategorySpeaker = 0x01 // Desktop speaker
	CategoryIO      = 0x08 // I/O box (render + capture)
)

// Entity IDs of the fixed topology. The render path chains USB streaming
// input terminal -> feature unit -> speaker output terminal; the capture
// path chains microphone input terminal -> USB streaming output terminal.
// All terminals reference the single clock source.
const (
	EntityClockSource      = 0x01 // Internal programmable clock
	EntityInputTerminal    = 0x02 // USB streaming IT (render)
	EntityCaptureTerminal  = 0x03 // Microphone IT (capture)
	EntityCaptureStreaming = 0x04 // USB streaming OT (capture)
	EntityOutputTerminal   = 0x05 // Speaker OT (render)
	EntityFeatureUnit      = 0x06 // Feature unit (render)
)

// Endpoint addresses used by the generated configuration.
const (
	endpointAudioOut = 0x01 // Iso OUT, PCM render data
	endpointFeedback = 0x81 // Iso IN, feedback value
	endpointAudioIn  = 0x82 // Iso IN, PCM capture data
)

// Feedback encodings. Full-speed feedback is a 3-byte 10.14 value; the
// 4-byte 16.16 encoding is the default here and matches high-speed hosts.
const (
	FeedbackFormat1616 = 4 // bytes per sample, 16.16 fixed point
	FeedbackFormat1014 = 3 // bytes per sample, 10.14 fixed point
)
