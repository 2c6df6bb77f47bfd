package audio

import (
	goaudio "github.com/go-audio/audio"

	"github.com/audiodev/usbaudio/pkg"
)

// PCM interop with go-audio buffers. Samples cross the wire as
// little-endian signed integers at the configured width; IntBuffer
// carries them as machine ints, one per channel per frame.

// DecodeSamples converts wire-format frames into samples, returning the
// number of samples written to dst. Width is the sample size in bits.
func DecodeSamples(dst []int, src []byte, width int) int {
	bytes := width / 8
	n := len(src) / bytes
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = decodeSample(src[i*bytes:], width)
	}
	return n
}

// EncodeSamples converts samples into wire-format frames, returning the
// number of bytes written to dst.
func EncodeSamples(dst []byte, src []int, width int) int {
	bytes := width / 8
	n := len(src)
	if max := len(dst) / bytes; n > max {
		n = max
	}
	for i := 0; i < n; i++ {
		encodeSample(dst[i*bytes:], src[i], width)
	}
	return n * bytes
}

func decodeSample(b []byte, width int) int {
	switch width {
	case 16:
		return int(int16(uint16(b[0]) | uint16(b[1])<<8))
	case 24:
		v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		return int(int32(v<<8) >> 8)
	default: // 32
		v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		return int(int32(v))
	}
}

func encodeSample(b []byte, s, width int) {
	switch width {
	case 16:
		b[0] = byte(s)
		b[1] = byte(s >> 8)
	case 24:
		b[0] = byte(s)
		b[1] = byte(s >> 8)
		b[2] = byte(s >> 16)
	default: // 32
		b[0] = byte(s)
		b[1] = byte(s >> 8)
		b[2] = byte(s >> 16)
		b[3] = byte(s >> 24)
	}
}

// ReadPCM fills buf.Data with rendered samples from the host, decoded
// from the wire format. buf.Format and SourceBitDepth are set from the
// configuration; the buffer's Data length selects how many samples to
// read, rounded down to whole frames. Returns the number of real
// frames copied.
func (f *Function) ReadPCM(buf *goaudio.IntBuffer) (int, error) {
	if buf == nil || len(buf.Data) == 0 {
		return 0, pkg.ErrInvalidParameter
	}

	frameSamples := f.cfg.Channels
	frames := len(buf.Data) / frameSamples
	if frames == 0 {
		return 0, pkg.ErrBufferTooSmall
	}

	raw := make([]byte, frames*f.cfg.FrameBytes())
	n, err := f.ReadFrames(raw)
	if err != nil {
		return 0, err
	}
	DecodeSamples(buf.Data[:frames*frameSamples], raw, f.cfg.SampleBits)

	buf.Format = &goaudio.Format{
		NumChannels: f.cfg.Channels,
		SampleRate:  int(f.SampleRate()),
	}
	buf.SourceBitDepth = f.cfg.SampleBits
	return n, nil
}

// WritePCM queues buf.Data on the capture path, encoded to the wire
// format. Trailing samples short of a whole frame are ignored.
// Returns the number of frames accepted.
func (f *Function) WritePCM(buf *goaudio.IntBuffer) (int, error) {
	if buf == nil || len(buf.Data) == 0 {
		return 0, pkg.ErrInvalidParameter
	}

	frameSamples := f.cfg.Channels
	frames := len(buf.Data) / frameSamples
	if frames == 0 {
		return 0, pkg.ErrBufferTooSmall
	}

	raw := make([]byte, frames*f.cfg.FrameBytes())
	EncodeSamples(raw, buf.Data[:frames*frameSamples], f.cfg.SampleBits)
	return f.WriteFrames(raw)
}
