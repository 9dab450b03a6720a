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

package core

import (
	"fmt"

	"github.com/juju/errors"
)

// Kind classifies a harness error.
type Kind int

// Error kinds
const (
	KindConnection Kind = iota + 1
	KindConfiguration
	KindSchema
	KindTransaction
	KindTeardown
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindConfiguration:
		return "configuration"
	case KindSchema:
		return "schema"
	case KindTransaction:
		return "transaction"
	case KindTeardown:
		return "teardown"
	default:
		return "unknown"
	}
}

// Fatal reports whether an error of this kind must stop the run.
// Transaction and teardown errors are recorded and the run goes on.
func (k Kind) Fatal() bool {
	switch k {
	case KindConnection, KindConfiguration, KindSchema:
		return true
	default:
		return false
	}
}

// Phase is the lifecycle step a worker was in when an error happened.
type Phase string

// Phases of a worker
const (
	PhaseConfig   Phase = "config"
	PhaseConnect  Phase = "connect"
	PhaseSetUp    Phase = "setup"
	PhaseIterate  Phase = "iterate"
	PhaseTearDown Phase = "teardown"
)

// NoWorker marks errors which do not belong to a single worker.
const NoWorker = -1

// Error is the error type returned by every stage of the harness.
type Error struct {
	Kind   Kind
	Phase  Phase
	Worker int
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Worker == NoWorker {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error (worker %d): %v", e.Kind, e.Worker, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error.
func NewError(kind Kind, phase Phase, worker int, err error) *Error {
	return &Error{Kind: kind, Phase: phase, Worker: worker, Err: err}
}

// ConnectionError reports that a worker lost, or never got, its connection.
func ConnectionError(phase Phase, worker int, err error) *Error {
	return NewError(KindConnection, phase, worker, err)
}

// ConfigurationError reports an invalid configuration or a failed session directive.
func ConfigurationError(phase Phase, worker int, err error) *Error {
	return NewError(KindConfiguration, phase, worker, err)
}

// SchemaError reports a failed DDL or seed statement.
func SchemaError(worker int, err error) *Error {
	return NewError(KindSchema, PhaseSetUp, worker, err)
}

// TransactionError reports a failed statement or commit inside one iteration.
func TransactionError(worker int, err error) *Error {
	return NewError(KindTransaction, PhaseIterate, worker, err)
}

// TeardownError reports a failed cleanup.
func TeardownError(worker int, err error) *Error {
	return NewError(KindTeardown, PhaseTearDown, worker, err)
}

// AsError extracts the *Error carried by err, looking through juju traces.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	if e, ok := errors.Cause(err).(*Error); ok {
		return e, true
	}
	e, ok := err.(*Error)
	return e, ok
}

// IsFatal reports whether err must abort the run. Errors not produced by the
// harness are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	e, ok := AsError(err)
	if !ok {
		return true
	}
	return e.Kind.Fatal()
}
