// Copyright 2021 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package barrier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestBarrierReleasesOnLastArrival(t *testing.T) {
	const n = 8
	b := New(n)
	passed := atomic.NewInt32(0)

	var wg sync.WaitGroup
	for i := 0; i < n-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Wait(context.Background()))
			passed.Inc()
		}()
	}

	// nobody passes before the last party arrives
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), passed.Load())
	select {
	case <-b.Done():
		t.Fatal("barrier released early")
	default:
	}

	require.NoError(t, b.Wait(context.Background()))
	wg.Wait()
	require.Equal(t, int32(n-1), passed.Load())

	// one-shot: later waiters pass through
	require.NoError(t, b.Wait(context.Background()))
}

func TestBarrierSingleParty(t *testing.T) {
	b := New(1)
	require.NoError(t, b.Wait(context.Background()))
}

func TestBarrierAbort(t *testing.T) {
	b := New(3)
	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errCh <- b.Wait(context.Background())
		}()
	}
	cause := errors.New("create table failed")
	b.Abort(cause)
	for i := 0; i < 2; i++ {
		select {
		case err := <-errCh:
			require.Equal(t, cause, err)
		case <-time.After(5 * time.Second):
			t.Fatal("waiter not released by abort")
		}
	}
	require.Equal(t, cause, b.Wait(context.Background()))

	// abort after release is ignored
	released := New(1)
	require.NoError(t, released.Wait(context.Background()))
	released.Abort(cause)
	require.NoError(t, released.Wait(context.Background()))
}

func TestBarrierContextCanceled(t *testing.T) {
	b := New(2)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := b.Wait(ctx)
	require.Error(t, err)
	require.Equal(t, context.Canceled, errors.Cause(err))
}

func TestNewPanicsOnZeroParties(t *testing.T) {
	require.Panics(t, func() { New(0) })
}
