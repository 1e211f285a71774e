// Package batch coalesces concurrent key-value operations into periodic
// bulk transactions against a storage backend. Callers enqueue reads and
// writes without blocking; a scheduler drains the queue on a fixed
// interval, applies the whole batch in one transaction, and settles every
// operation with the outcome of the transaction that carried it.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"batchkv/storage"
)

// DefaultInterval is the delay between scheduled commits when Options
// does not override it.
const DefaultInterval = 10 * time.Millisecond

// Options configures an Engine.
type Options struct {
	// Interval is the delay between scheduled commits. Zero or negative
	// selects DefaultInterval.
	Interval time.Duration

	// Logger receives commit diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
}

type actionKind uint8

const (
	actionGet actionKind = iota
	actionSet
	actionDelete
)

// action is one queued operation together with its completion channel:
// a get settles through its own future, a write through the batch future
// that was current when it was enqueued.
type action struct {
	kind  actionKind
	key   string
	value []byte
	get   *GetFuture
}

// Engine is the batching layer. One engine owns one store connection;
// a closed engine cannot be reopened.
type Engine struct {
	backend  storage.Backend
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	queue  []action
	batch  *BatchFuture
	closed bool

	store   storage.Store
	connErr error
	ready   chan struct{} // closed once the connection attempt settles

	commitMu sync.Mutex // one commit in flight at a time

	stop     chan struct{}
	loopDone chan struct{}

	closeOnce sync.Once
	closeDone chan struct{} // closed once the final drain and store close finish
	closeErr  error
}

// Open creates an engine over backend and starts connecting to the store
// in the background. Operations are accepted immediately and held in the
// queue until the store is ready; if the store fails to open, everything
// queued rejects with a ConnectionError and the engine closes itself.
func Open(backend storage.Backend, opts Options) *Engine {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		backend:  backend,
		interval: interval,
		logger:   logger,
		batch:    newBatchFuture(),
		ready:     make(chan struct{}),
		stop:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		closeDone: make(chan struct{}),
	}
	go e.run()
	return e
}

// run connects, drains once immediately, then commits on every tick until
// the engine closes.
func (e *Engine) run() {
	defer close(e.loopDone)

	store, err := e.backend.Open(context.Background())
	if err != nil {
		e.failConnection(err)
		close(e.ready)
		return
	}

	e.mu.Lock()
	e.store = store
	closed := e.closed
	e.mu.Unlock()

	if closed {
		// Close raced the connection attempt; the close path owns the
		// final drain and the store handle from here.
		close(e.ready)
		return
	}

	// Drain whatever was queued while connecting, then announce ready.
	e.commit()
	close(e.ready)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.commit()
		}
	}
}

// failConnection closes the engine and rejects everything queued so far,
// plus the current batch future, with a ConnectionError.
func (e *Engine) failConnection(err error) {
	cerr := &ConnectionError{Err: err}

	e.mu.Lock()
	e.closed = true
	e.connErr = cerr
	queued := e.queue
	e.queue = nil
	outcome := e.batch
	e.mu.Unlock()

	for _, a := range queued {
		if a.get != nil {
			a.get.reject(cerr)
		}
	}
	outcome.reject(cerr)

	e.logger.Error("store connection failed", zap.Error(err))
}

// enqueue appends a to the queue and returns the batch future the action
// joined. It never blocks.
func (e *Engine) enqueue(a action) (*BatchFuture, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	e.queue = append(e.queue, a)
	outcome := e.batch
	e.mu.Unlock()
	return outcome, nil
}

// WaitReady blocks until the store connection settles: nil once the store
// is ready, the ConnectionError if opening failed. Operations may be
// enqueued without waiting; they are held until the connection resolves.
func (e *Engine) WaitReady(ctx context.Context) error {
	select {
	case <-e.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connErr
}

// GetAsync enqueues a point read. The returned future settles when the
// batch containing the read is applied: with the stored value, with the
// value written earlier in the same batch, or with found=false for an
// absent key. On a closed engine the future is already rejected with
// ErrClosed.
func (e *Engine) GetAsync(key string) *GetFuture {
	f := newGetFuture()
	if _, err := e.enqueue(action{kind: actionGet, key: key, get: f}); err != nil {
		f.reject(err)
	}
	return f
}

// Get enqueues a point read and waits for it to settle.
func (e *Engine) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return e.GetAsync(key).Wait(ctx)
}

// SetAsync enqueues an upsert. The returned future is shared by every
// write in the same batch and settles with that batch's transaction
// outcome. On a closed engine the future is already rejected with
// ErrClosed.
func (e *Engine) SetAsync(key string, value []byte) *BatchFuture {
	a := action{kind: actionSet, key: key, value: append([]byte(nil), value...)}
	outcome, err := e.enqueue(a)
	if err != nil {
		return rejectedBatchFuture(err)
	}
	return outcome
}

// Set enqueues an upsert and waits for its batch to commit.
func (e *Engine) Set(ctx context.Context, key string, value []byte) error {
	return e.SetAsync(key, value).Wait(ctx)
}

// DeleteAsync enqueues a point delete. Same contract as SetAsync.
func (e *Engine) DeleteAsync(key string) *BatchFuture {
	outcome, err := e.enqueue(action{kind: actionDelete, key: key})
	if err != nil {
		return rejectedBatchFuture(err)
	}
	return outcome
}

// Delete enqueues a point delete and waits for its batch to commit.
func (e *Engine) Delete(ctx context.Context, key string) error {
	return e.DeleteAsync(key).Wait(ctx)
}

// Flush commits everything queued so far and waits for that batch to
// settle. Returns nil immediately when the queue is empty.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if len(e.queue) == 0 {
		e.mu.Unlock()
		return nil
	}
	outcome := e.batch
	e.mu.Unlock()

	select {
	case <-e.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.commit()
	return outcome.Wait(ctx)
}

// commit drains the queue, swaps in a fresh batch future, applies the
// drained actions in one transaction, and settles the detached future
// with the transaction's outcome. An empty queue is a no-op. A failed
// transaction is terminal for its batch only: the queue is never restored
// and nothing is retried.
func (e *Engine) commit() {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	e.mu.Lock()
	if len(e.queue) == 0 || e.store == nil {
		e.mu.Unlock()
		return
	}
	actions := e.queue
	e.queue = nil
	outcome := e.batch
	e.batch = newBatchFuture()
	e.mu.Unlock()

	batchID := uuid.NewString()
	start := time.Now()

	txn, err := e.store.Begin(true)
	if err != nil {
		for _, a := range actions {
			if a.get != nil {
				a.get.reject(err)
			}
		}
		outcome.reject(&TransactionError{Err: err})
		e.logger.Error("begin transaction failed",
			zap.String("batch_id", batchID),
			zap.Error(err))
		return
	}
	defer txn.Discard()

	var applyErr error
	writes := 0
	for _, a := range actions {
		switch a.kind {
		case actionGet:
			value, found, err := txn.Get(a.key)
			if err != nil {
				// A failed read settles only its own future; the batch
				// outcome still follows the transaction.
				a.get.reject(err)
			} else {
				a.get.resolve(value, found)
			}
		case actionSet:
			if err := txn.Put(a.key, a.value); err != nil && applyErr == nil {
				applyErr = err
			}
			writes++
		case actionDelete:
			if err := txn.Delete(a.key); err != nil && applyErr == nil {
				applyErr = err
			}
			writes++
		}
	}

	if applyErr != nil {
		outcome.reject(&TransactionError{Err: applyErr})
		e.logger.Error("batch aborted",
			zap.String("batch_id", batchID),
			zap.Int("actions", len(actions)),
			zap.Error(applyErr))
		return
	}

	if err := txn.Commit(); err != nil {
		outcome.reject(&TransactionError{Err: err})
		e.logger.Error("batch commit failed",
			zap.String("batch_id", batchID),
			zap.Int("actions", len(actions)),
			zap.Error(err))
		return
	}

	outcome.resolve()
	e.logger.Debug("batch committed",
		zap.String("batch_id", batchID),
		zap.Int("actions", len(actions)),
		zap.Int("writes", writes),
		zap.Duration("took", time.Since(start)))
}

// Close stops the scheduler, commits everything enqueued strictly before
// the call, and closes the store handle. Operations after Close fail with
// ErrClosed. The shutdown itself runs to completion exactly once even if
// a caller's ctx expires mid-wait; concurrent and repeated calls await
// the same shutdown and return its result.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		close(e.stop)
		go e.finishClose()
	})

	select {
	case <-e.closeDone:
		return e.closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finishClose runs the final drain once the scheduler has stopped. It is
// detached from any caller's ctx so an abandoned Close wait cannot skip
// the drain: the queued futures still settle and the store still closes.
func (e *Engine) finishClose() {
	defer close(e.closeDone)

	<-e.loopDone

	e.mu.Lock()
	store := e.store
	connErr := e.connErr
	e.mu.Unlock()

	if connErr != nil || store == nil {
		// The connection failed; everything queued was already rejected.
		return
	}

	e.commit()
	e.closeErr = store.Close()
}

// Destroy closes the engine, then irreversibly erases the underlying
// store.
func (e *Engine) Destroy(ctx context.Context) error {
	if err := e.Close(ctx); err != nil {
		return err
	}
	if err := e.backend.Erase(); err != nil {
		return &EraseError{Err: err}
	}
	return nil
}
