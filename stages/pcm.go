package stages

import (
	"bufio"
	"encoding/binary"
	"math"
	"os"

	"github.com/chewxy/math32"

	pipeline "github.com/tphakala/go-audio-pipeline"
)

// pcmBufferSize is deliberately small: the stage is a debugging tap and the
// tiny buffer keeps the file close to the live signal.
const pcmBufferSize = 32

// PCMDump writes raw little-endian float32 samples to a file, skipping NaN
// samples. File writes are not thread safe; keep Threads at 1.
type PCMDump struct {
	pipeline.StageConfig
	path    string
	file    *os.File
	w       *bufio.Writer
	written int64
}

// NewPCMDump creates a PCM dump sink writing to path. It defaults to
// consuming [TagSink] and emitting [pipeline.BlockStateDefault].
func NewPCMDump(path string) *PCMDump {
	return &PCMDump{
		StageConfig: pipeline.StageConfig{Entry: TagSink, Exit: pipeline.BlockStateDefault},
		path:        path,
	}
}

// Init opens the output file.
func (p *PCMDump) Init([]*pipeline.RingBuffer) error {
	f, err := os.Create(p.path)
	if err != nil {
		return err
	}
	p.file = f
	p.w = bufio.NewWriterSize(f, pcmBufferSize)
	return nil
}

// Process writes every non-NaN sample of in.
func (p *PCMDump) Process(_ *pipeline.State, in, _ []float32, _ int) pipeline.BlockState {
	var buf [4]byte
	for _, v := range in {
		if math32.IsNaN(v) {
			continue
		}
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		if _, err := p.w.Write(buf[:]); err != nil {
			return pipeline.BlockStateError
		}
		p.written += 4
	}
	return p.Exit
}

// Cleanup flushes and closes the file.
func (p *PCMDump) Cleanup() error {
	if p.w == nil {
		return nil
	}
	if err := p.w.Flush(); err != nil {
		p.file.Close()
		return err
	}
	return p.file.Close()
}

// Written returns the number of bytes written so far. Only stable once the
// pipeline has stopped.
func (p *PCMDump) Written() int64 { return p.written }
