// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package paths resolves the directories custodia state lives in.
package paths

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the custodia configuration directory. The
// CUSTODIA_CONFIG_DIR environment variable overrides any default; XDG
// conventions apply otherwise.
func GetConfigDir() string {
	if dir := os.Getenv("CUSTODIA_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "custodia")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".custodia"
	}
	return filepath.Join(home, ".custodia")
}

// GetConfigFile returns the path to the main config file.
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetDataDir returns the directory holding ledger, keys, and plans.
// CUSTODIA_DATA_DIR overrides; XDG conventions apply otherwise.
func GetDataDir() string {
	if dir := os.Getenv("CUSTODIA_DATA_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "custodia")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".custodia"
	}
	return filepath.Join(home, ".custodia")
}

// DefaultLedgerPath returns where the audit ledger lives by default.
func DefaultLedgerPath() string {
	return filepath.Join(GetDataDir(), "audit.ledger")
}

// DefaultLedgerKeyPath returns the default ledger signing key location.
func DefaultLedgerKeyPath() string {
	return filepath.Join(GetDataDir(), "keys", "ledger.key")
}

// DefaultPlanDir returns where sealed plans are stored by default.
func DefaultPlanDir() string {
	return filepath.Join(GetDataDir(), "plans")
}

// DefaultPlanKeyPath returns the default plan sealing key location.
func DefaultPlanKeyPath() string {
	return filepath.Join(GetDataDir(), "keys", "plan.key")
}
