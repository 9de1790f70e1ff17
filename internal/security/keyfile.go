// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// keyFileMode restricts key material to the owning user.
const keyFileMode = 0600

// LoadOrCreateKey returns the secret stored at path, generating size random
// bytes on first use. The key file is hex-encoded and created with 0600
// permissions inside a 0700 directory. A key that exists but cannot be read
// or decoded is a fatal configuration problem, not something to regenerate:
// silently minting a new key would orphan every artifact sealed with the old
// one.
func LoadOrCreateKey(path string, size int) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		key, decErr := hex.DecodeString(strings.TrimSpace(string(raw)))
		if decErr != nil {
			return nil, fmt.Errorf("key file %s is not valid hex: %w", path, decErr)
		}
		if len(key) != size {
			return nil, fmt.Errorf("key file %s holds %d bytes, want %d", path, len(key), size)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	key := make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	encoded := hex.EncodeToString(key) + "\n"
	if err := os.WriteFile(path, []byte(encoded), keyFileMode); err != nil {
		return nil, fmt.Errorf("failed to write key file %s: %w", path, err)
	}

	return key, nil
}
