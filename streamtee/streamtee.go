// Package streamtee duplicates one upstream byte stream into a
// client-facing Live reader and a bounded background Capture, without
// letting a slow or abandoned Capture add latency to Live. Grounded on
// the io.Pipe fan-out in blueberrycongee-llmux/providers/bedrock/bedrock.go
// (transformStream), which uses a pipe to re-encode one source into one
// destination reader; here the pipe is Live and the second destination
// is an in-memory Capture rather than a second pipe, since Capture must
// never be allowed to block the producer.
package streamtee

import (
	"io"
	"sync"
)

// State describes how a Capture finished.
type State int

const (
	// StatePending means the source has not yet finished draining.
	StatePending State = iota
	// StateDone means the source ended cleanly (EOF) and Capture holds
	// every byte that was produced.
	StateDone
	// StateError means the source errored before ending cleanly.
	StateError
	// StateOverflow means Capture exceeded its byte cap and was
	// abandoned; Live was unaffected.
	StateOverflow
)

// Capture is the bounded background destination of a tee. It has
// exactly one writer (the tee goroutine) and is meant to have exactly
// one reader, which must call Wait before reading State or Bytes.
type Capture struct {
	maxBytes int

	mu    sync.Mutex
	buf   []byte
	state State
	err   error
	done  chan struct{}
}

func newCapture(maxBytes int) *Capture {
	return &Capture{
		maxBytes: maxBytes,
		state:    StatePending,
		done:     make(chan struct{}),
	}
}

// Wait blocks until the capture reaches a terminal state.
func (c *Capture) Wait() {
	<-c.done
}

// Done returns the channel that closes once the capture reaches a
// terminal state, so a caller can select on it alongside a deadline
// instead of blocking forever in Wait.
func (c *Capture) Done() <-chan struct{} {
	return c.done
}

// State reports how the capture finished. Only meaningful after Wait
// returns.
func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the source error, if the capture ended in StateError.
func (c *Capture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Bytes returns the accumulated capture. Only meaningful after Wait
// returns and State is StateDone.
func (c *Capture) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf
}

// append adds p to the capture buffer unless it would exceed maxBytes,
// in which case the capture is abandoned. Returns false once abandoned
// so the caller can stop copying into it.
func (c *Capture) append(p []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePending {
		return false
	}
	if len(c.buf)+len(p) > c.maxBytes {
		c.state = StateOverflow
		close(c.done)
		return false
	}
	c.buf = append(c.buf, p...)
	return true
}

func (c *Capture) finish(state State, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePending {
		return
	}
	c.state = state
	c.err = err
	close(c.done)
}

// Tee reads src to completion exactly once, forwarding every byte to
// the returned *io.PipeReader (Live) and to a Capture. Live is written
// first on every iteration: io.Pipe.Write blocks until Live is read,
// which is the natural backpressure point; Capture's append is a
// non-blocking in-memory copy that never waits on anything, so a slow
// or cancelled Live never starves Capture and an abandoned Capture
// never slows Live. The caller owns src and the returned Live reader:
// closing Live unblocks a pending pipe Write with an error, after which
// the tee goroutine keeps draining src into Capture alone until src
// ends.
func Tee(src io.ReadCloser, maxBytes int) (*io.PipeReader, *Capture) {
	pr, pw := io.Pipe()
	capture := newCapture(maxBytes)

	go func() {
		defer src.Close()
		defer pw.Close()

		buf := make([]byte, 32*1024)
		capturing := true
		for {
			n, readErr := src.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])

				_, _ = pw.Write(chunk)

				if capturing {
					capturing = capture.append(chunk)
				}
			}
			if readErr != nil {
				if readErr == io.EOF {
					capture.finish(StateDone, nil)
				} else {
					capture.finish(StateError, readErr)
				}
				return
			}
		}
	}()

	return pr, capture
}
