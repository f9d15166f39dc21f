// Command pipeline-demo runs a sine -> gain -> delay -> sink pipeline for a
// fixed duration and reports the flush counters.
//
// Usage:
//
//	pipeline-demo -duration 2s -wav tone.wav
//	pipeline-demo -freq 440 -gain 0.5 -pcm tone.pcm
//	pipeline-demo -text | head            # print samples to stdout
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	pipeline "github.com/tphakala/go-audio-pipeline"
	"github.com/tphakala/go-audio-pipeline/stages"
)

const (
	defaultFreq     = 1000.0
	defaultGain     = 2.0
	defaultDelay    = 100 * time.Millisecond
	defaultDuration = 2 * time.Second
	blockCount      = 96
)

func main() {
	freq := flag.Float64("freq", defaultFreq, "tone frequency in Hz")
	gain := flag.Float64("gain", defaultGain, "gain multiplier")
	delay := flag.Duration("delay", defaultDelay, "delay before the tone reaches the sink")
	duration := flag.Duration("duration", defaultDuration, "how long to run the pipeline")
	wavPath := flag.String("wav", "", "record a mono 16-bit WAV file")
	pcmPath := flag.String("pcm", "", "record raw little-endian float32 PCM")
	text := flag.Bool("text", false, "print samples to stdout")
	flag.Parse()

	// Exactly one sink owns the output tag; competing sinks would steal
	// blocks from each other.
	var sink pipeline.Stage
	switch {
	case *wavPath != "":
		sink = stages.NewWAVSink(*wavPath)
	case *pcmPath != "":
		sink = stages.NewPCMDump(*pcmPath)
	case *text:
		sink = stages.NewTextLog(os.Stdout)
	default:
		sink = stages.NewMeter()
	}

	gen, err := pipeline.NewBufferGroup(1, blockCount)
	if err != nil {
		log.Fatal(err)
	}
	// The delay stage writes its shifted stream into a second buffer.
	proc, err := pipeline.NewBufferGroup(2, blockCount)
	if err != nil {
		log.Fatal(err)
	}
	out, err := pipeline.NewBufferGroup(1, blockCount)
	if err != nil {
		log.Fatal(err)
	}

	p, err := pipeline.New(&pipeline.Config{
		Generators: []pipeline.Stage{stages.NewSine(float32(*freq))},
		Processors: []pipeline.Stage{
			stages.NewGain(float32(*gain)),
			stages.NewDelay(*delay),
		},
		Outputs:           []pipeline.Stage{sink},
		GeneratorBuffers:  gen,
		ProcessingBuffers: proc,
		OutputBuffers:     out,
	})
	if err != nil {
		log.Fatal(err)
	}

	errc := p.RunAsync()
	time.Sleep(*duration)
	p.Stop()
	if err := <-errc; err != nil {
		log.Fatal(err)
	}

	st := p.State()
	fmt.Printf("generator flushes:  %d\n", st.GeneratorFlushes())
	fmt.Printf("processing flushes: %d\n", st.ProcessingFlushes())
	if m, ok := sink.(*stages.Meter); ok {
		fmt.Printf("rms %.4f, peak %.4f over %d samples\n", m.RMS(), m.Peak(), m.Samples())
	}
}
