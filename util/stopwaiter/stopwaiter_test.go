// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package stopwaiter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestStopWaiterStopAndWaitBeforeStart(t *testing.T) {
	var sw StopWaiter
	sw.StopAndWait()
	if err := sw.Start(context.Background(), &sw); err != nil {
		t.Fatal(err)
	}
	if sw.GetContext().Err() == nil {
		t.Fatal("context should be cancelled when started after stop")
	}
}

func TestStopWaiterDoubleStart(t *testing.T) {
	var sw StopWaiter
	if err := sw.Start(context.Background(), &sw); err != nil {
		t.Fatal(err)
	}
	defer sw.StopAndWait()
	if err := sw.Start(context.Background(), &sw); err == nil {
		t.Fatal("second Start should fail")
	}
}

func TestStopWaiterCallIteratively(t *testing.T) {
	var sw StopWaiter
	if err := sw.Start(context.Background(), &sw); err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int64
	sw.CallIteratively(func(ctx context.Context) time.Duration {
		calls.Add(1)
		return time.Millisecond
	})
	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("iterative call never ran")
		}
		time.Sleep(time.Millisecond)
	}
	sw.StopAndWait()
	settled := calls.Load()
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != settled {
		t.Fatal("iterative call kept running after StopAndWait")
	}
}
