// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package planstore persists redaction plans at rest. Plans carry the
// matched text of every finding, so they are sealed with an AEAD
// (XChaCha20-Poly1305) under a key held outside the plan directory. A
// plan file that fails authentication is reported as tampered, never
// partially decoded.
package planstore

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"

	"custodia/internal/security"
)

// TamperError reports a plan file whose AEAD seal did not verify.
type TamperError struct {
	PlanID string
}

func (e *TamperError) Error() string {
	return fmt.Sprintf("plan %s failed authentication: file modified or sealed under a different key", e.PlanID)
}

// Store reads and writes sealed plan files under a single directory.
type Store struct {
	dir string
	key []byte
}

// Open prepares a store rooted at dir. The sealing key is loaded from
// keyPath, generated on first use.
func Open(dir, keyPath string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating plan directory: %w", err)
	}
	key, err := security.LoadOrCreateKey(keyPath, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("loading plan key: %w", err)
	}
	return &Store{dir: dir, key: key}, nil
}

func (s *Store) path(planID string) string {
	return filepath.Join(s.dir, planID+".plan")
}

// Save seals plaintext under the plan ID and writes it atomically.
func (s *Store) Save(planID string, plaintext []byte) error {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return fmt.Errorf("initializing cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	// Plan ID as additional data binds the ciphertext to its filename.
	sealed := aead.Seal(nonce, nonce, plaintext, []byte(planID))

	tmp := s.path(planID) + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0600); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	if err := os.Rename(tmp, s.path(planID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalizing plan: %w", err)
	}
	return nil
}

// Load opens and authenticates the plan stored under planID.
func (s *Store) Load(planID string) ([]byte, error) {
	sealed, err := os.ReadFile(s.path(planID))
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", planID, err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, &TamperError{PlanID: planID}
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(planID))
	if err != nil {
		return nil, &TamperError{PlanID: planID}
	}
	return plaintext, nil
}

// Exists reports whether a plan file is present for planID.
func (s *Store) Exists(planID string) bool {
	_, err := os.Stat(s.path(planID))
	return err == nil
}
