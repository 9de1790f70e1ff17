// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"custodia/internal/observability"
	"custodia/internal/security"
)

// ledgerFileMode restricts the audit log to the owning user. The log records
// which documents held sensitive data and when they were redacted, which is
// itself sensitive metadata.
const ledgerFileMode = 0600

// keySize is the HMAC-SHA256 key length in bytes.
const keySize = 32

// Ledger is the single-writer append-only audit log. It is an explicit,
// injectable handle: components that need to append receive a *Ledger, and all
// mutation funnels through Append under one mutex. The (sequence, last hash)
// pair is never shared as package-level state.
type Ledger struct {
	path    string
	tipPath string

	mu       sync.Mutex
	file     *os.File
	sequence int64 // sequence of the next entry to append
	prevHash string
	lastTime time.Time
	key      []byte

	observer *observability.StandardObserver
}

// Options configures ledger construction.
type Options struct {
	// KeyPath locates the HMAC key file. Generated on first use if absent.
	KeyPath string

	// Observer receives operation records. Optional.
	Observer *observability.StandardObserver
}

// Open opens or creates the ledger at path and initializes chain state from
// the last entry already on disk. The tip sidecar lives at path + ".tip".
func Open(path string, opts Options) (*Ledger, error) {
	if opts.KeyPath == "" {
		return nil, fmt.Errorf("ledger key path not configured")
	}
	key, err := security.LoadOrCreateKey(opts.KeyPath, keySize)
	if err != nil {
		return nil, fmt.Errorf("ledger signing key unavailable: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, ledgerFileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}

	l := &Ledger{
		path:     path,
		tipPath:  path + ".tip",
		file:     file,
		prevHash: GenesisHash,
		key:      key,
		observer: opts.Observer,
	}

	if err := l.initChainState(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to initialize chain state: %w", err)
	}

	return l, nil
}

// initChainState seeds sequence and prevHash from the last entry on disk.
func (l *Ledger) initChainState() error {
	entries, err := readEntries(l.path)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	last := entries[len(entries)-1]
	l.sequence = last.Sequence + 1
	l.prevHash = last.EntryHash
	l.lastTime = last.Timestamp
	return nil
}

// Append records one operation and returns its sequence number. The entry is
// hashed, signed, written as a single line, and fsynced before the sealed tip
// is rewritten; a crash leaves either the old chain or the fully written new
// entry, never a torn one. Append is the ledger's only mutator.
func (l *Ledger) Append(operation string, inputs, outputs []string, args []Arg) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Timestamps must be non-decreasing across the file even if the wall
	// clock steps backwards between appends.
	now := time.Now().UTC()
	if now.Before(l.lastTime) {
		now = l.lastTime
	}

	if inputs == nil {
		inputs = []string{}
	}
	if outputs == nil {
		outputs = []string{}
	}
	if args == nil {
		args = []Arg{}
	}

	entry := Entry{
		Sequence:     l.sequence,
		Timestamp:    now,
		Operation:    operation,
		Inputs:       inputs,
		Outputs:      outputs,
		Args:         args,
		PreviousHash: l.prevHash,
	}

	hash, err := computeEntryHash(&entry)
	if err != nil {
		return 0, err
	}
	entry.EntryHash = hash
	entry.Signature = sign(l.key, hash)

	line, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize ledger entry: %w", err)
	}
	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		return 0, fmt.Errorf("failed to write ledger entry %d: %w", entry.Sequence, err)
	}
	if err := l.file.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync ledger after entry %d: %w", entry.Sequence, err)
	}

	// The entry is durable; advance in-memory state before resealing the tip
	// so a tip write failure cannot desynchronize the chain.
	l.sequence = entry.Sequence + 1
	l.prevHash = entry.EntryHash
	l.lastTime = entry.Timestamp

	if err := l.writeTip(entry.Sequence, entry.EntryHash); err != nil {
		return 0, fmt.Errorf("entry %d written but tip reseal failed: %w", entry.Sequence, err)
	}

	if l.observer != nil {
		l.observer.LogOperation(observability.OperationRecord{
			Component: "ledger",
			Operation: "append",
			FilePath:  l.path,
			Success:   true,
			Metadata: map[string]interface{}{
				"sequence":        entry.Sequence,
				"operation":       operation,
				"ledger_tip_hash": entry.EntryHash,
			},
		})
	}

	return entry.Sequence, nil
}

// writeTip reseals the sidecar via write-then-rename so a crash mid-update
// leaves either the previous tip or the new one.
func (l *Ledger) writeTip(lastSequence int64, lastHash string) error {
	tip := sealTip(l.key, lastSequence, lastHash)
	buf, err := json.Marshal(tip)
	if err != nil {
		return fmt.Errorf("failed to serialize tip: %w", err)
	}

	tmp := l.tipPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, ledgerFileMode)
	if err != nil {
		return fmt.Errorf("failed to create tip temp file: %w", err)
	}
	if _, err := f.Write(append(buf, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to write tip: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync tip: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close tip temp file: %w", err)
	}
	if err := os.Rename(tmp, l.tipPath); err != nil {
		return fmt.Errorf("failed to publish tip: %w", err)
	}
	return nil
}

// ReadAll returns every entry currently on disk in sequence order.
func (l *Ledger) ReadAll() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return readEntries(l.path)
}

// Len returns the number of entries currently on disk.
func (l *Ledger) Len() (int, error) {
	entries, err := l.ReadAll()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Close releases the underlying file handle. The ledger must not be used
// afterwards.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// readEntries parses the newline-delimited entry file at path. A missing file
// is an empty ledger, not an error.
func readEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return entries, fmt.Errorf("malformed ledger entry at line %d: %w", lineNo, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to read ledger file: %w", err)
	}
	return entries, nil
}

// readTip loads the sealed sidecar. Returns (nil, nil) when no tip exists.
func readTip(path string) (*Tip, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tip file: %w", err)
	}
	var tip Tip
	if err := json.Unmarshal(raw, &tip); err != nil {
		return nil, fmt.Errorf("malformed tip file: %w", err)
	}
	return &tip, nil
}
