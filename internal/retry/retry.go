// Package retry implements bounded retry with exponential backoff, used by
// the collector when Solana RPC calls fail transiently.
package retry

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"time"
)

// maxDelay caps the backoff so a long retry chain against a struggling RPC
// node never sleeps more than this between attempts.
const maxDelay = 10 * time.Second

// PermanentError marks an error that retrying cannot fix, such as a
// malformed signature or a 4xx response from the RPC node.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that Do returns it immediately without retrying.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// Do invokes fn up to attempts times, sleeping between failures with
// exponential backoff and half-width jitter. It returns nil on the first
// success, the unwrapped error for a PermanentError, ctx.Err() if the
// context is cancelled while sleeping, or the last error once attempts
// are exhausted.
func Do(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(base, i)):
		}
	}
	return err
}

// backoff returns the sleep before retry number i (zero-based): base<<i
// capped at maxDelay, then jittered to a uniform value in [d/2, d].
func backoff(base time.Duration, i int) time.Duration {
	d := base << uint(i)
	if d <= 0 || d > maxDelay {
		d = maxDelay
	}
	half := d / 2
	return half + time.Duration(randInt64n(int64(half)+1))
}

// randInt64n returns a uniform random int64 in [0, n) from crypto/rand.
func randInt64n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var b [8]byte
	_, _ = rand.Read(b[:])
	v := binary.LittleEndian.Uint64(b[:]) >> 1
	return int64(v % uint64(n))
}
