// Package stages provides ready-made pipeline stages: signal generators,
// processors and sinks that plug into a [pipeline.Pipeline].
//
// # Block State Tags
//
// The integer a stage's Process returns is the entry tag of the next stage in
// the same group. The stages in this package default to one conventional
// assignment:
//
//	generator group:  Default -> Processed          (Sine)
//	processing group: TagGain -> TagDelay            (Gain)
//	                  TagDelay -> Processed          (Delay)
//	output group:     TagSink -> Default             (PCMDump, TextLog, WAVSink, Meter, Spectrum)
//
// A group handoff seeds the destination head buffer with the first
// destination stage's entry tag, so the defaults line up for the
// sine -> gain -> delay -> sink chain. Every stage embeds
// [pipeline.StageConfig]; callers with a different topology adjust the
// exported Entry, Exit, In, Out, Threads and Shift fields before the pipeline
// starts.
package stages

import pipeline "github.com/tphakala/go-audio-pipeline"

// Default stage tags. Values are free per-stage tags in 0x01..0xFC.
const (
	// TagGain is consumed by Gain and seeded into the processing head.
	TagGain pipeline.BlockState = 0x01

	// TagDelay is emitted by Gain and consumed by Delay.
	TagDelay pipeline.BlockState = 0x02

	// TagSink is consumed by the sink stages and seeded into the output
	// head.
	TagSink pipeline.BlockState = 0x03
)
