package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// fileLock serializa escritores do mesmo arquivo: o semáforo cobre goroutines do
// processo e o flock cobre outros processos que usem o mesmo caminho.
type fileLock struct {
	sem     chan struct{}
	flock   *flock.Flock
	timeout time.Duration
}

func newFileLock(path string, timeout time.Duration) *fileLock {
	return &fileLock{
		sem:     make(chan struct{}, 1),
		flock:   flock.New(path),
		timeout: timeout,
	}
}

// acquire bloqueia até obter o lock, o timeout expirar ou ctx ser cancelado.
func (l *fileLock) acquire(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, l.flock.Path())
	}

	locked, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		<-l.sem
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, &StorageError{Op: "lock", Path: l.flock.Path(), Err: err}
		}
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, l.flock.Path())
	}

	return func() {
		_ = l.flock.Unlock()
		<-l.sem
	}, nil
}
