package stages

import (
	"bufio"
	"io"
	"strconv"

	"github.com/chewxy/math32"

	pipeline "github.com/tphakala/go-audio-pipeline"
)

// TextLog prints every non-NaN sample as one decimal line to a writer. It is
// the textual counterpart of [PCMDump] and is likewise single threaded.
type TextLog struct {
	pipeline.StageConfig
	w *bufio.Writer
}

// NewTextLog creates a textual sample logger writing to w. It defaults to
// consuming [TagSink] and emitting [pipeline.BlockStateDefault].
func NewTextLog(w io.Writer) *TextLog {
	return &TextLog{
		StageConfig: pipeline.StageConfig{Entry: TagSink, Exit: pipeline.BlockStateDefault},
		w:           bufio.NewWriter(w),
	}
}

// Process writes one line per non-NaN sample of in.
func (l *TextLog) Process(_ *pipeline.State, in, _ []float32, _ int) pipeline.BlockState {
	var line []byte
	for _, v := range in {
		if math32.IsNaN(v) {
			continue
		}
		line = strconv.AppendFloat(line[:0], float64(v), 'g', -1, 32)
		line = append(line, '\n')
		if _, err := l.w.Write(line); err != nil {
			return pipeline.BlockStateError
		}
	}
	return l.Exit
}

// Cleanup flushes buffered output.
func (l *TextLog) Cleanup() error {
	return l.w.Flush()
}
