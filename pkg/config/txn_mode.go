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

package config

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// TxnMode is the transaction protocol every iteration runs under.
type TxnMode int

// Transaction modes
const (
	AutoCommit TxnMode = iota
	Optimistic
	Pessimistic
)

var txnModeNames = []string{"auto-commit", "optimistic", "pessimistic"}

// ParseTxnMode parses the textual form of a transaction mode.
func ParseTxnMode(s string) (TxnMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range txnModeNames {
		if n == name {
			return TxnMode(i), nil
		}
	}
	switch name {
	case "autocommit", "auto_commit":
		return AutoCommit, nil
	}
	return AutoCommit, errors.Errorf("invalid transaction mode %q, expect one of %s", s, strings.Join(txnModeNames, ", "))
}

func (m TxnMode) String() string {
	if m < AutoCommit || m > Pessimistic {
		return fmt.Sprintf("TxnMode(%d)", int(m))
	}
	return txnModeNames[m]
}

// Explicit reports whether iterations are wrapped in BEGIN/COMMIT.
// Optimistic and pessimistic share the same per-iteration shape, they only
// differ in the session directive.
func (m TxnMode) Explicit() bool {
	return m != AutoCommit
}

// Directive returns the statement issued once per connection, or "" for auto-commit.
func (m TxnMode) Directive() string {
	switch m {
	case Optimistic:
		return "SET SESSION tidb_txn_mode = 'optimistic'"
	case Pessimistic:
		return "SET SESSION tidb_txn_mode = 'pessimistic'"
	default:
		return ""
	}
}

// Set implements pflag.Value.
func (m *TxnMode) Set(s string) error {
	v, err := ParseTxnMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Type implements pflag.Value.
func (m *TxnMode) Type() string {
	return "txn-mode"
}

// UnmarshalText implements encoding.TextUnmarshaler for toml.
func (m *TxnMode) UnmarshalText(text []byte) error {
	return m.Set(string(text))
}

// MarshalText implements encoding.TextMarshaler.
func (m TxnMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
