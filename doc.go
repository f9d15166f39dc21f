// Package pipeline implements a real-time block-based audio processing
// pipeline: a multi-stage, multi-goroutine dataflow engine in which fixed-size
// blocks of float32 samples traverse a linear chain of stage groups
// (generators, processors, outputs) through lock-free ring buffers.
//
// # Architecture
//
// Audio is moved in blocks of [BlockSize] samples at a [SampleRate] nominal
// rate. Every block in a [RingBuffer] carries a one-byte lifecycle tag, its
// [BlockState]. The state array is the only synchronization mechanism in the
// engine: a stage worker claims a block by compare-and-swapping its state from
// the stage's entry tag to [BlockStateProcessing], runs the stage's processing
// hook on the sample data, and publishes the resulting tag with atomic stores.
// No mutex, condition variable or channel sits on the hot path.
//
// Stages are arranged in three groups, each with its own ordered set of ring
// buffers. When a group's tail buffer is fully processed and the next group's
// endpoints are empty, the supervisor performs a flush handoff: it pauses the
// workers of both groups, copies the tail buffer into the next group's head
// buffer, reseeds the state arrays and resumes the workers.
//
// # Quick Start
//
// Build a pipeline from stages and buffers, then run it:
//
//	gen, _ := pipeline.NewBufferGroup(1, 96)
//	proc, _ := pipeline.NewBufferGroup(2, 96)
//	out, _ := pipeline.NewBufferGroup(1, 96)
//
//	p, err := pipeline.New(&pipeline.Config{
//	    Generators:        []pipeline.Stage{stages.NewSine(1000)},
//	    Processors:        []pipeline.Stage{stages.NewGain(2.0), stages.NewDelay(100 * time.Millisecond)},
//	    Outputs:           []pipeline.Stage{stages.NewPCMDump("tone.pcm")},
//	    GeneratorBuffers:  gen,
//	    ProcessingBuffers: proc,
//	    OutputBuffers:     out,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	errc := p.RunAsync()
//	time.Sleep(2 * time.Second)
//	p.Stop()
//	if err := <-errc; err != nil {
//	    log.Fatal(err)
//	}
//
// Any type satisfying the [Stage] interface plugs in; the stages subpackage
// provides ready-made generators, processors and sinks.
//
// # Concurrency Model
//
// The supervisor runs on the goroutine calling [Pipeline.Run] (or a detached
// goroutine for [Pipeline.RunAsync]). Each stage owns ThreadCount worker
// goroutines. Workers never block on OS primitives in steady state; they spin
// on atomic reads and yield to the scheduler when no block is claimable.
// Stopping is cooperative: workers observe the execution state at the top of
// each iteration and return, and Run joins them all before stage cleanup.
package pipeline
