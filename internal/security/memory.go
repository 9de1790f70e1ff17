// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package security

// SecureString holds a matched sensitive span in a mutable buffer so it
// can be zeroed once planning is done. Go strings are immutable and the
// runtime may copy memory, so this narrows the exposure window rather
// than guaranteeing erasure; do not treat it as cryptographic memory
// protection.
type SecureString struct {
	data []byte
}

// NewSecureString copies s into a scrubbable buffer.
func NewSecureString(s string) *SecureString {
	ss := &SecureString{data: make([]byte, len(s))}
	copy(ss.data, s)
	return ss
}

// String materializes the value. Each call allocates an immutable copy
// that Clear cannot reach, so call it only at the point of use.
func (ss *SecureString) String() string {
	return string(ss.data)
}

// Len reports the span length without materializing the value.
func (ss *SecureString) Len() int {
	return len(ss.data)
}

// Clear zeroes the buffer and drops it.
func (ss *SecureString) Clear() {
	for i := range ss.data {
		ss.data[i] = 0
	}
	ss.data = nil
}
