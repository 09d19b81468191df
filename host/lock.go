package host

import (
	"context"
	"sync"
	"sync/atomic"
)

// Locker serializes host execution. Acquire blocks until the caller owns
// the lock and returns a context marking that ownership plus a release
// function. Callers must pass the returned context down the call chain
// so nested acquisitions (guest -> host -> guest -> host) do not deadlock.
type Locker interface {
	Acquire(ctx context.Context) (context.Context, func())
}

// ExecLock is a reentrant Locker. Reentrancy is keyed on the context, not
// the goroutine: any context derived from one returned by Acquire
// re-enters without blocking while that acquisition is held.
type ExecLock struct {
	mu    sync.Mutex
	owner atomic.Pointer[lockToken]
}

type lockToken struct{ _ byte }

type lockKey struct{ l *ExecLock }

func NewExecLock() *ExecLock {
	return &ExecLock{}
}

// Acquire takes the lock unless ctx already owns it. The returned release
// function is idempotent.
func (l *ExecLock) Acquire(ctx context.Context) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tok, ok := ctx.Value(lockKey{l}).(*lockToken); ok && l.owner.Load() == tok {
		return ctx, func() {}
	}

	l.mu.Lock()
	tok := &lockToken{}
	l.owner.Store(tok)

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.owner.CompareAndSwap(tok, nil)
			l.mu.Unlock()
		})
	}
	return context.WithValue(ctx, lockKey{l}, tok), release
}

// Held reports whether ctx owns the lock.
func (l *ExecLock) Held(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	tok, ok := ctx.Value(lockKey{l}).(*lockToken)
	return ok && l.owner.Load() == tok
}

// NoLock is a Locker that never blocks.
type NoLock struct{}

func (NoLock) Acquire(ctx context.Context) (context.Context, func()) {
	return ctx, func() {}
}
