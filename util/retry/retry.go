package retry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const maxSleepTime = time.Second * 30

var log = logrus.WithField("prefix", "util")

// UntilSucceeds retries the given function with linear backoff until it
// succeeds or the context is cancelled.
func UntilSucceeds[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	sleepTime := time.Second
	for {
		if ctx.Err() != nil {
			return zeroVal[T](), ctx.Err()
		}
		got, err := fn()
		if err != nil {
			log.Error(err)
			time.Sleep(sleepTime)
			if sleepTime < maxSleepTime {
				sleepTime += time.Second
			}
			continue
		}
		return got, nil
	}
}

func zeroVal[T any]() T {
	var result T
	return result
}
