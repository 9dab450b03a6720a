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

	"github.com/juju/errors"
)

// Barrier is a one-shot rendezvous point for a fixed number of parties.
// It is released when the last party arrives, or aborted with an error.
type Barrier struct {
	parties int

	mu      sync.Mutex
	arrived int
	closed  bool
	err     error
	done    chan struct{}
}

// New creates a barrier for parties participants.
func New(parties int) *Barrier {
	if parties < 1 {
		panic("barrier: parties must be at least 1")
	}
	return &Barrier{
		parties: parties,
		done:    make(chan struct{}),
	}
}

// Parties returns the number of participants.
func (b *Barrier) Parties() int {
	return b.parties
}

// Wait blocks until all parties have called Wait, the barrier is aborted, or
// ctx is done. It returns nil only when the barrier was released normally.
func (b *Barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.arrived++
		if b.arrived == b.parties {
			b.closed = true
			close(b.done)
		}
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.err
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
}

// Abort releases every current and future waiter with err. It is a no-op once
// the barrier has been released.
func (b *Barrier) Abort(err error) {
	if err == nil {
		err = errors.New("barrier aborted")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.err = err
	b.closed = true
	close(b.done)
}

// Done is closed once the barrier is released or aborted.
func (b *Barrier) Done() <-chan struct{} {
	return b.done
}
