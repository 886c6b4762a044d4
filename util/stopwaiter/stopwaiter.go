// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package stopwaiter

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"
)

// StopWaiter manages the lifecycle of a component's background
// goroutines: Start hands out a context, StopAndWait cancels it and
// blocks until every launched thread has returned.
type StopWaiter struct {
	mutex    sync.Mutex // protects started, stopped, ctx, stopFunc
	started  bool
	stopped  bool
	ctx      context.Context
	stopFunc func()
	name     string

	wg sync.WaitGroup
}

func getParentName(parent any) string {
	// remove asterisk in case the type is a pointer
	return strings.Replace(reflect.TypeOf(parent).String(), "*", "", 1)
}

// start-after-start will error, start-after-stop will immediately cancel
func (s *StopWaiter) Start(ctx context.Context, parent any) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.started {
		return errors.New("start after start")
	}
	s.started = true
	s.name = getParentName(parent)
	s.ctx, s.stopFunc = context.WithCancel(ctx)
	if s.stopped {
		s.stopFunc()
	}
	return nil
}

func (s *StopWaiter) Started() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.started
}

func (s *StopWaiter) Stopped() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stopped
}

// GetContext returns the context cancelled by StopAndWait. Must only be
// called after Start.
func (s *StopWaiter) GetContext() context.Context {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.ctx
}

// StopAndWait may be called multiple times, even before Start.
func (s *StopWaiter) StopAndWait() {
	s.mutex.Lock()
	if s.started && !s.stopped {
		s.stopFunc()
	}
	s.stopped = true
	s.mutex.Unlock()
	s.wg.Wait()
}

// LaunchThread launches a goroutine tracked by StopAndWait. The
// goroutine must exit promptly once the passed context is cancelled.
func (s *StopWaiter) LaunchThread(foo func(context.Context)) {
	ctx := s.GetContext()
	if s.Stopped() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		foo(ctx)
	}()
}

// CallIteratively calls function iteratively in a thread.
// input param foo: function that returns the duration to wait before
// the next invocation.
func (s *StopWaiter) CallIteratively(foo func(context.Context) time.Duration) {
	s.LaunchThread(func(ctx context.Context) {
		for {
			interval := foo(ctx)
			if ctx.Err() != nil {
				return
			}
			if interval == time.Duration(0) {
				continue
			}
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	})
}

func (s *StopWaiter) Name() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.name
}
