// Package stopper owns the one-way transition from writing to verifying.
package stopper

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/armadaproject/mvcheck/internal/common/mvcontext"
	"github.com/armadaproject/mvcheck/internal/mvcheck/loadgen"
)

const Prompt = "Starting the writes, please kill and restart one node while the writes are being sent. Press Enter to stop the writes and verify."

// Writer is the part of loadgen.Generator the controller drives.
type Writer interface {
	Run(ctx *mvcontext.Context) (loadgen.Summary, error)
}

// Controller runs a Writer until the operator enters a line on In.
type Controller struct {
	In  io.Reader
	Out io.Writer
}

func New(in io.Reader, out io.Writer) *Controller {
	return &Controller{In: in, Out: out}
}

// Run starts w, then blocks until a line (any content) or EOF is read from In. It then cancels w and
// waits for its in-flight writes to drain before returning the final summary. There is no way back
// to writing once this returns.
//
// If ctx is cancelled first, w is stopped the same way and ctx's error is returned. If w stops on its
// own, its error is returned without waiting for the operator.
//
// Reads from In can't be interrupted, so when Run returns early the reading goroutine stays blocked
// until the next line arrives.
func (c *Controller) Run(ctx *mvcontext.Context, w Writer) (loadgen.Summary, error) {
	writeCtx, stopWrites := mvcontext.WithCancel(ctx)
	defer stopWrites()

	type result struct {
		summary loadgen.Summary
		err     error
	}
	writerDone := make(chan result, 1)
	go func() {
		summary, err := w.Run(writeCtx)
		writerDone <- result{summary, err}
	}()

	fmt.Fprintln(c.Out, Prompt)

	lineRead := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(c.In).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		lineRead <- err
	}()

	var cause error
	select {
	case r := <-writerDone:
		if r.err == nil {
			r.err = errors.New("writer stopped before it was asked to")
		}
		return r.summary, r.err
	case err := <-lineRead:
		if err != nil {
			cause = errors.WithMessage(err, "error reading operator input")
		}
	case <-ctx.Done():
		cause = errors.WithStack(ctx.Err())
	}

	ctx.Log.Debug("Stop requested, waiting for in-flight writes")
	stopWrites()
	r := <-writerDone
	if cause != nil {
		return r.summary, cause
	}
	return r.summary, r.err
}
