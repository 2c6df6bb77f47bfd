// Package audio implements a USB Audio Class 2.0 (UAC2) function for the
// usbaudio device stack.
//
// The package provides an asynchronous isochronous speaker (render) path
// with explicit rate feedback, and optionally a microphone (capture)
// path, as a single composite audio function: one audio control
// interface plus one streaming interface per direction, grouped by an
// interface association descriptor.
//
// # Topology
//
// The audio function exposes a fixed entity topology:
//
//   - Clock Source (programmable sampling frequency, read-only validity)
//   - Render: USB streaming input terminal -> feature unit -> speaker
//     output terminal
//   - Capture: microphone input terminal -> USB streaming output terminal
//
// The host controls the sampling frequency on the clock source and mute
// and volume on the feature unit, per channel or on the master channel,
// through CUR and RANGE requests.
//
// # Synchronization
//
// Render data arrives on an asynchronous isochronous OUT endpoint and is
// buffered in a single-producer/single-consumer frame ring between the
// USB service interval and the application clock domain. Once per
// millisecond the device reports a corrected rate on the feedback
// endpoint, derived from the ring fill level relative to its half-full
// target, steering the host toward the device's actual consumption rate.
// Ring overruns drop the newest frames; underruns substitute silence or
// repeat the last frame, and both are counted rather than treated as
// errors.
//
// # Usage
//
//	fn, _ := audio.New(&audio.Config{
//	    Channels:    2,
//	    SampleBits:  16,
//	    SampleRates: []uint32{48000, 44100},
//	})
//
//	config := device.NewConfiguration(1)
//	fn.ConfigureDevice(config)
//	dev.AddConfiguration(config)
//
//	stack := device.NewStack(dev, hal)
//	fn.Attach(stack)
//	stack.Start(ctx)
//
//	// Consume rendered audio once the host starts streaming
//	buf := make([]byte, frames*fn.Config().FrameBytes())
//	n, _ := fn.ReadFrames(buf)
//
// Streams start and stop with the host's SET_INTERFACE requests: the
// operational alternate setting activates a stream at the clock's
// current rate, alternate 0 deactivates it. A sample rate change issued
// while a stream is running takes effect when the host next restarts
// the stream.
package audio
