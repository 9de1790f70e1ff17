// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ledger implements the tamper-evident, append-only audit log that
// every significant operation writes through. Entries are hash-linked and
// signed with a locally held HMAC key; a sealed sidecar tip makes truncation
// of the tail detectable.
package ledger

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// GenesisHash is the reserved previous_hash of the first entry in a chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Arg is a single key/value pair of operation-specific metadata. Args are kept
// as an ordered list rather than a map so serialization is deterministic and
// hashing is reproducible. Values must never contain raw sensitive text.
type Arg struct {
	Key   string `json:"k"`
	Value string `json:"v"`
}

// Args builds an ordered argument list from alternating key/value strings.
func Args(kv ...string) []Arg {
	if len(kv)%2 != 0 {
		kv = append(kv, "")
	}
	out := make([]Arg, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		out = append(out, Arg{Key: kv[i], Value: kv[i+1]})
	}
	return out
}

// Entry is one record of the audit chain. EntryHash and Signature are pure
// functions of the other fields plus the prior entry's hash: any single-bit
// change upstream changes every subsequent hash.
type Entry struct {
	Sequence     int64     `json:"sequence"`
	Timestamp    time.Time `json:"timestamp"`
	Operation    string    `json:"operation"`
	Inputs       []string  `json:"inputs"`
	Outputs      []string  `json:"outputs"`
	Args         []Arg     `json:"args"`
	PreviousHash string    `json:"previous_hash"`
	EntryHash    string    `json:"entry_hash"`
	Signature    string    `json:"signature"`
}

// canonicalEntry is the hashed portion of an Entry. Field order is fixed by
// the struct, so json.Marshal yields a canonical byte sequence.
type canonicalEntry struct {
	Sequence     int64    `json:"sequence"`
	Timestamp    string   `json:"timestamp"`
	Operation    string   `json:"operation"`
	Inputs       []string `json:"inputs"`
	Outputs      []string `json:"outputs"`
	Args         []Arg    `json:"args"`
	PreviousHash string   `json:"previous_hash"`
}

// computeEntryHash digests the canonical serialization of the entry's
// non-derived fields.
func computeEntryHash(e *Entry) (string, error) {
	buf, err := json.Marshal(canonicalEntry{
		Sequence:     e.Sequence,
		Timestamp:    e.Timestamp.UTC().Format(time.RFC3339Nano),
		Operation:    e.Operation,
		Inputs:       e.Inputs,
		Outputs:      e.Outputs,
		Args:         e.Args,
		PreviousHash: e.PreviousHash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize entry %d: %w", e.Sequence, err)
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

// sign computes the keyed MAC over an entry hash. The key lives outside the
// ledger file and is never embedded in any entry.
func sign(key []byte, entryHash string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(entryHash))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature reports whether sig is a valid MAC over entryHash.
func verifySignature(key []byte, entryHash, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(entryHash))
	return hmac.Equal(mac.Sum(nil), want)
}

// Tip is the sealed sidecar summary of the chain head. A verifier recomputes
// the tip from the full entry walk and compares it against the sealed copy;
// a mismatch signals truncation or deletion even when the surviving entries
// are internally consistent.
type Tip struct {
	LastSequence int64  `json:"last_sequence"`
	LastHash     string `json:"last_hash"`
	Signature    string `json:"signature"`
}

// sealTip signs the tip's sequence and hash with the ledger key.
func sealTip(key []byte, lastSequence int64, lastHash string) Tip {
	payload := fmt.Sprintf("%d\x00%s", lastSequence, lastHash)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return Tip{
		LastSequence: lastSequence,
		LastHash:     lastHash,
		Signature:    hex.EncodeToString(mac.Sum(nil)),
	}
}

// verifyTipSeal reports whether the tip's signature covers its own fields.
func verifyTipSeal(key []byte, tip Tip) bool {
	want := sealTip(key, tip.LastSequence, tip.LastHash)
	a, err1 := hex.DecodeString(want.Signature)
	b, err2 := hex.DecodeString(tip.Signature)
	if err1 != nil || err2 != nil {
		return false
	}
	return hmac.Equal(a, b)
}
