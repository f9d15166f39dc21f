package stages

import (
	"os"

	"github.com/chewxy/math32"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	pipeline "github.com/tphakala/go-audio-pipeline"
)

const (
	wavBitDepth  = 16
	wavPCMFormat = 1
	maxInt16     = 32767
)

// WAVSink records non-NaN samples and encodes them as a mono 16-bit WAV file
// when the pipeline stops. Samples are clipped to [-1, 1] before conversion.
// Single threaded.
type WAVSink struct {
	pipeline.StageConfig
	path string
	pcm  []int
}

// NewWAVSink creates a WAV recorder writing to path. It defaults to
// consuming [TagSink] and emitting [pipeline.BlockStateDefault].
func NewWAVSink(path string) *WAVSink {
	return &WAVSink{
		StageConfig: pipeline.StageConfig{Entry: TagSink, Exit: pipeline.BlockStateDefault},
		path:        path,
	}
}

// Process accumulates the block's non-NaN samples as 16-bit PCM.
func (s *WAVSink) Process(_ *pipeline.State, in, _ []float32, _ int) pipeline.BlockState {
	for _, v := range in {
		if math32.IsNaN(v) {
			continue
		}
		v = min(max(v, -1), 1)
		s.pcm = append(s.pcm, int(v*maxInt16))
	}
	return s.Exit
}

// Cleanup encodes the recording.
func (s *WAVSink) Cleanup() error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(f, pipeline.SampleRate, wavBitDepth, 1, wavPCMFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: pipeline.SampleRate},
		Data:           s.pcm,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Recorded returns the number of samples recorded so far. Only stable once
// the pipeline has stopped.
func (s *WAVSink) Recorded() int { return len(s.pcm) }
