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
	"time"
)

// Status is the outcome code of one iteration. Zero is success; failures carry
// the server error number when there is one.
type Status int

// Well known status codes
const (
	StatusSuccess Status = 0
	StatusUnknown Status = 1
)

// Success reports whether the iteration succeeded.
func (s Status) Success() bool {
	return s == StatusSuccess
}

// IterInfo describes the iteration a worker is about to run.
type IterInfo struct {
	WorkerID int
	// Seq counts the iterations this worker started, failed ones included.
	Seq uint64
}

// IterReport is produced once per iteration and is never modified afterwards.
type IterReport struct {
	Worker   int
	Duration time.Duration
	Status   Status
	// Bytes is an estimate of the payload size, see the workloads for the formula.
	Bytes uint64
	Items uint64
}

// Failed builds the report of an iteration which did not complete.
func Failed(worker int, d time.Duration, status Status) *IterReport {
	if status == StatusSuccess {
		status = StatusUnknown
	}
	return &IterReport{Worker: worker, Duration: d, Status: status}
}
