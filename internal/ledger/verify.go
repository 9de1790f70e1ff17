// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ledger

import "fmt"

// VerificationResult reports the outcome of a full chain walk. On failure it
// carries the earliest failing sequence and a reason; the walk still visits
// every entry so Entries reflects the full chain length for diagnostics.
type VerificationResult struct {
	OK             bool   `json:"ok"`
	Entries        int    `json:"entries"`
	FailedSequence int64  `json:"failed_sequence"`
	Reason         Reason `json:"reason,omitempty"`
	Detail         string `json:"detail,omitempty"`
}

// Err converts a failed result into a typed IntegrityError, or nil when OK.
func (r VerificationResult) Err() error {
	if r.OK {
		return nil
	}
	return &IntegrityError{Sequence: r.FailedSequence, Reason: r.Reason, Detail: r.Detail}
}

// Verify re-walks every entry on disk: genesis check, per-entry hash and
// signature recomputation, chain links, and finally comparison of the
// recomputed head against the sealed tip. Failures are reported, never
// corrected; the ledger provides no self-healing.
func (l *Ledger) Verify() (VerificationResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := readEntries(l.path)
	if err != nil {
		return VerificationResult{}, err
	}
	tip, err := readTip(l.tipPath)
	if err != nil {
		return VerificationResult{}, err
	}

	result := VerificationResult{OK: true, Entries: len(entries), FailedSequence: -1}

	// fail records only the earliest failure; the walk continues so the
	// caller still learns the total chain length.
	fail := func(seq int64, reason Reason, detail string) {
		if result.OK {
			result.OK = false
			result.FailedSequence = seq
			result.Reason = reason
			result.Detail = detail
		}
	}

	prevHash := GenesisHash
	var prevSeq int64 = -1
	for i := range entries {
		e := &entries[i]

		if e.Sequence != prevSeq+1 {
			fail(e.Sequence, ReasonChainBreak,
				fmt.Sprintf("expected sequence %d", prevSeq+1))
		}
		if e.PreviousHash != prevHash {
			fail(e.Sequence, ReasonChainBreak, "previous_hash does not match prior entry")
		}

		recomputed, hashErr := computeEntryHash(e)
		if hashErr != nil {
			fail(e.Sequence, ReasonHashMismatch, hashErr.Error())
		} else if recomputed != e.EntryHash {
			fail(e.Sequence, ReasonHashMismatch, "entry_hash does not match recomputed digest")
		}

		if !verifySignature(l.key, e.EntryHash, e.Signature) {
			fail(e.Sequence, ReasonSignatureInvalid, "signature does not match entry_hash")
		}

		prevHash = e.EntryHash
		prevSeq = e.Sequence
	}

	// An empty chain with no sealed tip is a fresh ledger.
	if len(entries) == 0 && tip == nil {
		return result, nil
	}

	if tip == nil {
		fail(prevSeq, ReasonTruncated, "entries exist but tip sidecar is missing")
		return result, nil
	}

	if !verifyTipSeal(l.key, *tip) {
		fail(tip.LastSequence, ReasonSignatureInvalid, "tip seal does not match tip contents")
		return result, nil
	}

	if len(entries) == 0 {
		fail(tip.LastSequence, ReasonTruncated,
			fmt.Sprintf("tip seals sequence %d but the entry file is empty", tip.LastSequence))
		return result, nil
	}

	last := entries[len(entries)-1]
	if tip.LastSequence != last.Sequence || tip.LastHash != last.EntryHash {
		fail(tip.LastSequence, ReasonTruncated,
			fmt.Sprintf("tip seals sequence %d but chain ends at %d", tip.LastSequence, last.Sequence))
	}

	return result, nil
}
