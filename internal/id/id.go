// Package id generates row identifiers and redeemable key codes.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// codeAlphabet omits characters that are easy to misread in a chat client
// (0/O, 1/I/L), so codes can be retyped by hand.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// DefaultCodeLength is the number of random characters in a key code.
const DefaultCodeLength = 8

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "report-V1StGXR8_Z5jdHi6B-myT")
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// KeyCode creates a redeemable key code such as "NKEY-7QK2M9XH".
// The random part uses an upper-case alphabet without ambiguous characters.
func KeyCode(prefix string, length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	code, err := gonanoid.Generate(codeAlphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate key code: %w", err)
	}
	return prefix + "-" + code, nil
}
