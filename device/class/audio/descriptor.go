package audio

import (
	"encoding/binary"

	"github.com/audiodev/usbaudio/device"
	"github.com/audiodev/usbaudio/pkg"
)

// Descriptor sizes fixed by the class specification. The feature unit
// and the AC header grow with channel count and entity count; everything
// else is constant.
const (
	acHeaderBytes       = 9
	clockSourceBytes    = 8
	inputTerminalBytes  = 17
	outputTerminalBytes = 12
	asGeneralBytes      = 16
	formatTypeIBytes    = 6
	csEndpointBytes     = 8
)

// featureUnitBytes returns the feature unit descriptor size for the
// given channel count: master plus one bmaControls word per channel.
func featureUnitBytes(channels int) int {
	return 6 + 4*(channels+1)
}

// descriptors holds the prebuilt class-specific descriptor blocks for
// one audio function. The blocks are attached to interfaces by the
// facade; the standard interface and endpoint descriptors around them
// are emitted by the device stack.
type descriptors struct {
	control   []byte // class-specific AC interface block
	renderAS  []byte // class-specific AS block, render alt 1
	captureAS []byte // class-specific AS block, capture alt 1
	dataEP    []byte // class-specific iso data endpoint block
}

// buildDescriptors derives every class-specific block from the
// configuration, recomputing all length prefixes and the AC header
// total. It fails with ErrDescriptorTooLarge when the complete
// configuration descriptor would exceed the configured ceiling.
func buildDescriptors(cfg *Config) (*descriptors, error) {
	channelMask := uint32(1)<<uint(cfg.Channels) - 1

	d := &descriptors{}
	d.control = buildControlBlock(cfg, channelMask)
	d.renderAS = buildStreamingBlock(cfg, EntityInputTerminal, channelMask)
	if cfg.EnableCapture {
		d.captureAS = buildStreamingBlock(cfg, EntityCaptureStreaming, channelMask)
	}
	d.dataEP = buildDataEndpointBlock()

	if total := d.totalConfigBytes(cfg); total > cfg.DescriptorCeiling {
		pkg.LogWarn(pkg.ComponentAudio, "configuration descriptor exceeds ceiling",
			"total", total, "ceiling", cfg.DescriptorCeiling)
		return nil, pkg.ErrDescriptorTooLarge
	}
	return d, nil
}

// totalConfigBytes computes the complete configuration descriptor size:
// the standard descriptors emitted by the stack plus the class-specific
// blocks built here.
func (d *descriptors) totalConfigBytes(cfg *Config) int {
	total := int(device.ConfigurationDescriptorSize)
	total += int(device.IADSize)

	// Audio control interface
	total += int(device.InterfaceDescriptorSize) + len(d.control)

	// Render streaming interface: alt 0 + alt 1, data + feedback endpoints
	total += 2 * int(device.InterfaceDescriptorSize)
	total += len(d.renderAS)
	total += int(device.EndpointDescriptorSize) + len(d.dataEP) // iso OUT
	total += int(device.EndpointDescriptorSize)                 // iso IN feedback

	if cfg.EnableCapture {
		total += 2 * int(device.InterfaceDescriptorSize)
		total += len(d.captureAS)
		total += int(device.EndpointDescriptorSize) + len(d.dataEP)
	}
	return total
}

// buildControlBlock emits the class-specific AC interface block: header,
// clock source, then the render chain (USB streaming input terminal,
// feature unit, speaker output terminal) and, when capture is enabled,
// the capture chain (microphone input terminal, USB streaming output
// terminal).
func buildControlBlock(cfg *Config, channelMask uint32) []byte {
	size := acHeaderBytes + clockSourceBytes +
		inputTerminalBytes + featureUnitBytes(cfg.Channels) + outputTerminalBytes
	if cfg.EnableCapture {
		size += inputTerminalBytes + outputTerminalBytes
	}

	b := make([]byte, 0, size)

	category := byte(CategorySpeaker)
	if cfg.EnableCapture {
		category = CategoryIO
	}

	// Class-specific AC header
	b = append(b,
		acHeaderBytes, device.DescriptorTypeCSInterface, ACSubtypeHeader,
		0x00, 0x02, // bcdADC 2.00
		category,
		byte(size), byte(size>>8), // wTotalLength (header included)
		0x00, // bmControls
	)

	// Clock source: internal programmable, host-settable frequency,
	// read-only validity
	b = append(b,
		clockSourceBytes, device.DescriptorTypeCSInterface, ACSubtypeClockSource,
		EntityClockSource,
		0x03, // bmAttributes: internal programmable
		0x07, // bmControls: freq r/w, validity r/o
		0x00, // bAssocTerminal
		0x00, // iClockSource
	)

	b = appendInputTerminal(b, EntityInputTerminal, TerminalTypeUSBStreaming,
		cfg.Channels, channelMask)
	b = appendFeatureUnit(b, cfg.Channels)
	b = appendOutputTerminal(b, EntityOutputTerminal, TerminalTypeSpeaker,
		EntityFeatureUnit)

	if cfg.EnableCapture {
		b = appendInputTerminal(b, EntityCaptureTerminal, TerminalTypeMicrophone,
			cfg.Channels, channelMask)
		b = appendOutputTerminal(b, EntityCaptureStreaming, TerminalTypeUSBStreaming,
			EntityCaptureTerminal)
	}
	return b
}

func appendInputTerminal(b []byte, id uint8, terminalType uint16, channels int, channelMask uint32) []byte {
	b = append(b,
		inputTerminalBytes, device.DescriptorTypeCSInterface, ACSubtypeInputTerminal,
		id,
		byte(terminalType), byte(terminalType>>8),
		0x00, // bAssocTerminal
		EntityClockSource,
		byte(channels),
	)
	b = binary.LittleEndian.AppendUint32(b, channelMask)
	b = append(b,
		0x00,       // iChannelNames
		0x00, 0x00, // bmControls
		0x00, // iTerminal
	)
	return b
}

func appendOutputTerminal(b []byte, id uint8, terminalType uint16, sourceID uint8) []byte {
	return append(b,
		outputTerminalBytes, device.DescriptorTypeCSInterface, ACSubtypeOutputTerminal,
		id,
		byte(terminalType), byte(terminalType>>8),
		0x00, // bAssocTerminal
		sourceID,
		EntityClockSource,
		0x00, 0x00, // bmControls
		0x00, // iTerminal
	)
}

func appendFeatureUnit(b []byte, channels int) []byte {
	b = append(b,
		byte(featureUnitBytes(channels)), device.DescriptorTypeCSInterface, ACSubtypeFeatureUnit,
		EntityFeatureUnit,
		EntityInputTerminal, // bSourceID
	)
	// bmaControls: mute and volume host-programmable on master and
	// every logical channel
	for ch := 0; ch <= channels; ch++ {
		b = binary.LittleEndian.AppendUint32(b, 0x0000000F)
	}
	b = append(b, 0x00) // iFeature
	return b
}

// buildStreamingBlock emits the class-specific AS block for an
// operational alternate setting: AS general plus Format Type I.
func buildStreamingBlock(cfg *Config, terminalLink uint8, channelMask uint32) []byte {
	b := make([]byte, 0, asGeneralBytes+formatTypeIBytes)

	b = append(b,
		asGeneralBytes, device.DescriptorTypeCSInterface, ASSubtypeGeneral,
		terminalLink,
		0x00, // bmControls
		FormatTypeI,
	)
	b = binary.LittleEndian.AppendUint32(b, FormatBitPCM)
	b = append(b, byte(cfg.Channels))
	b = binary.LittleEndian.AppendUint32(b, channelMask)
	b = append(b, 0x00) // iChannelNames

	b = append(b,
		formatTypeIBytes, device.DescriptorTypeCSInterface, ASSubtypeFormatType,
		FormatTypeI,
		byte(cfg.SampleBits/8), // bSubslotSize
		byte(cfg.SampleBits),   // bBitResolution
	)
	return b
}

// buildDataEndpointBlock emits the class-specific iso data endpoint
// descriptor (EP_GENERAL).
func buildDataEndpointBlock() []byte {
	return []byte{
		csEndpointBytes, device.DescriptorTypeCSEndpoint, EPSubtypeGeneral,
		0x00,       // bmAttributes
		0x00,       // bmControls
		0x00,       // bLockDelayUnits
		0x00, 0x00, // wLockDelay
	}
}
