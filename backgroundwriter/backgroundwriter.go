// Package backgroundwriter commits a cache entry after a successful
// capture, off a bounded task channel with a fixed worker pool,
// sync.WaitGroup draining, and context-cancelled shutdown.
package backgroundwriter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"semcache/chunkparser"
	"semcache/contentstore"
	"semcache/internal/cacheerr"
	"semcache/internal/logging"
	"semcache/streamtee"
	"semcache/vectorindex"
)

// Job describes one pending cache admission. Exactly one of Capture or
// Content should be set: Capture for a streaming miss (content isn't
// known until the tee finishes), Content for a non-streaming miss
// (already fully known at submit time).
type Job struct {
	Capture  *streamtee.Capture
	Content  string
	Vector   []float32
	Model    string
	OrphanID string
}

// Writer runs a bounded pool of workers that each wait on their job's
// capture (if any), extract content, and commit content-before-vector.
type Writer struct {
	store    contentstore.Store
	index    vectorindex.Index
	deadline time.Duration
	log      *logging.Logger

	jobs chan Job
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New starts workerCount background workers reading off a queue of
// size bufferSize. deadline bounds how long a worker waits on a
// streaming capture before giving up.
func New(store contentstore.Store, index vectorindex.Index, workerCount, bufferSize int, deadline time.Duration, log *logging.Logger) *Writer {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		store:    store,
		index:    index,
		deadline: deadline,
		log:      log,
		jobs:     make(chan Job, bufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < workerCount; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}
	return w
}

// Submit enqueues job for background admission. Returns false if the
// queue is full, in which case the job is dropped rather than blocking
// the caller.
func (w *Writer) Submit(job Job) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		w.log.Warn("background write queue full, dropping task")
		return false
	}
}

// Shutdown stops accepting new work and waits for in-flight jobs to
// finish, up to each job's own deadline.
func (w *Writer) Shutdown() {
	w.cancel()
	close(w.jobs)
	w.wg.Wait()
}

func (w *Writer) worker(id int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			if err := w.process(job); err != nil {
				w.log.Warn("background write %d discarded: %s", id, err)
			}
		}
	}
}

func (w *Writer) process(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.deadline)
	defer cancel()

	content := job.Content
	if job.Capture != nil {
		select {
		case <-job.Capture.Done():
		case <-ctx.Done():
			return fmt.Errorf("capture did not reach a terminal state before the background deadline: %w", ctx.Err())
		}
		switch job.Capture.State() {
		case streamtee.StateOverflow:
			return cacheerr.ErrCaptureOverflow
		case streamtee.StateError:
			return fmt.Errorf("capture ended with error: %w", job.Capture.Err())
		case streamtee.StateDone:
			extracted, err := chunkparser.ExtractContent(job.Capture.Bytes())
			if err != nil {
				return err
			}
			content = extracted
		default:
			return errors.New("capture never reached a terminal state")
		}
	}

	if content == "" {
		return nil
	}

	id := job.OrphanID
	if id == "" {
		id = uuid.New().String()
	}

	if err := w.store.Put(ctx, id, content); err != nil {
		return fmt.Errorf("put content: %w", err)
	}

	if job.OrphanID != "" {
		// Repairing an existing vector's orphaned content: the vector
		// record already exists, so inserting again would duplicate it.
		return nil
	}

	if err := w.index.Insert(ctx, id, job.Vector, job.Model); err != nil {
		return fmt.Errorf("insert vector: %w", err)
	}
	return nil
}
