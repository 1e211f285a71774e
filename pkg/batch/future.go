package batch

import "context"

// GetFuture is the completion of a single batched read. It settles exactly
// once, when the batch containing the read is applied. A read error settles
// only this future; it does not decide the outcome of the batch.
type GetFuture struct {
	done  chan struct{}
	value []byte
	found bool
	err   error
}

func newGetFuture() *GetFuture {
	return &GetFuture{done: make(chan struct{})}
}

func (f *GetFuture) resolve(value []byte, found bool) {
	f.value = value
	f.found = found
	close(f.done)
}

func (f *GetFuture) reject(err error) {
	f.err = err
	close(f.done)
}

// Done is closed once the read has settled.
func (f *GetFuture) Done() <-chan struct{} { return f.done }

// Result returns the read outcome. Valid only after Done is closed.
func (f *GetFuture) Result() ([]byte, bool, error) {
	return f.value, f.found, f.err
}

// Wait blocks until the read settles or ctx expires.
func (f *GetFuture) Wait(ctx context.Context) ([]byte, bool, error) {
	select {
	case <-f.done:
		return f.value, f.found, f.err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// BatchFuture is the completion shared by every write queued into the same
// batch. It resolves when that batch's transaction commits and rejects with
// the transaction's error otherwise. Writes enqueued after a drain join a
// fresh future, never one already committing.
type BatchFuture struct {
	done chan struct{}
	err  error
}

func newBatchFuture() *BatchFuture {
	return &BatchFuture{done: make(chan struct{})}
}

func rejectedBatchFuture(err error) *BatchFuture {
	f := newBatchFuture()
	f.reject(err)
	return f
}

func (f *BatchFuture) resolve() {
	close(f.done)
}

func (f *BatchFuture) reject(err error) {
	f.err = err
	close(f.done)
}

// Done is closed once the batch has settled.
func (f *BatchFuture) Done() <-chan struct{} { return f.done }

// Err returns the batch outcome. Valid only after Done is closed.
func (f *BatchFuture) Err() error { return f.err }

// Wait blocks until the batch settles or ctx expires.
func (f *BatchFuture) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
