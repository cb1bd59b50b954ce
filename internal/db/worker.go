package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// queueDepth bounds how many writes may be pending before submitters
// block. Decision-path writes are small and fast; the buffer only needs
// to absorb bursts from multiple devices firing at once.
const queueDepth = 256

// ErrWorkerClosed is returned by Do after Close. Detached write-behind
// goroutines can outlive the shutdown sequence; they get this error
// instead of a panic on the closed queue.
var ErrWorkerClosed = errors.New("db: write worker closed")

type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Worker serializes all database writes through a single goroutine, one
// transaction per job. With SQLite's single connection this removes
// writer contention entirely: readers go straight to the pool, writers
// queue here.
type Worker struct {
	db   *sql.DB
	jobs chan job
	done chan struct{}

	mu     sync.RWMutex // guards closed against in-flight submits
	closed bool
}

func NewWorker(db *sql.DB) *Worker {
	w := &Worker{
		db:   db,
		jobs: make(chan job, queueDepth),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Close drains the queue and stops the worker. Safe to call once; any
// Do after (or racing) Close returns ErrWorkerClosed.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()

	// No submitter can hold the read lock anymore, so the channel close
	// cannot race a send.
	close(w.jobs)
	<-w.done
}

// Do runs fn inside its own transaction on the writer goroutine and
// returns the commit result.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)
	j := job{ctx: ctx, fn: fn, ch: ch}

	// Enqueue under the read lock so Close cannot close the queue out
	// from under the send; bail out if the caller's context expires
	// while the buffer is full.
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWorkerClosed
	}
	select {
	case w.jobs <- j:
		w.mu.RUnlock()
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}

	// Wait for result — bail out if the caller's context expires while the
	// job is queued or executing. The worker loop will still complete the
	// transaction; the result lands in the buffered ch and is discarded.
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		tx, err := w.db.BeginTx(j.ctx, nil)
		if err != nil {
			j.ch <- err
			continue
		}

		if err := j.fn(j.ctx, tx); err != nil {
			_ = tx.Rollback()
			j.ch <- err
			continue
		}

		j.ch <- tx.Commit()
	}
}
