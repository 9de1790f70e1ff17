// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ledger

import "fmt"

// Reason classifies a verification failure.
type Reason string

const (
	ReasonHashMismatch     Reason = "hash_mismatch"
	ReasonChainBreak       Reason = "chain_break"
	ReasonSignatureInvalid Reason = "signature_invalid"
	ReasonTruncated        Reason = "truncated"
)

// IntegrityError reports the earliest failing entry of a verification walk.
// It is always surfaced to the caller and never auto-repaired.
type IntegrityError struct {
	Sequence int64
	Reason   Reason
	Detail   string
}

func (e *IntegrityError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ledger integrity failure at sequence %d: %s (%s)", e.Sequence, e.Reason, e.Detail)
	}
	return fmt.Sprintf("ledger integrity failure at sequence %d: %s", e.Sequence, e.Reason)
}
