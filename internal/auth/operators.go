package auth

import (
	"fmt"
	"strings"
)

// Operator is a configured API client allowed to exchange its secret for a token.
type Operator struct {
	Name       string
	Role       Role
	SecretHash string
}

// Operators is the set of configured operators, keyed by name.
type Operators map[string]Operator

// ParseOperators parses "name:role:hash" entries separated by ';'.
// Argon2id PHC hashes contain neither separator.
func ParseOperators(raw string) (Operators, error) {
	ops := make(Operators)
	for entry := range strings.SplitSeq(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("invalid operator entry %q: want name:role:hash", entry)
		}
		role, err := ParseRole(parts[1])
		if err != nil {
			return nil, fmt.Errorf("operator %s: %w", parts[0], err)
		}
		if _, dup := ops[parts[0]]; dup {
			return nil, fmt.Errorf("operator %s listed twice", parts[0])
		}
		ops[parts[0]] = Operator{Name: parts[0], Role: role, SecretHash: parts[2]}
	}
	return ops, nil
}

// Authenticate checks an operator's secret and returns its role.
func (o Operators) Authenticate(name, secret string) (Role, bool) {
	op, ok := o[name]
	if !ok {
		// Unknown names spend the same hashing work as wrong secrets.
		VerifySecret(dummyHash, secret)
		return "", false
	}
	if !VerifySecret(op.SecretHash, secret) {
		return "", false
	}
	return op.Role, true
}

// dummyHash is a valid Argon2id hash of a random throwaway value.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=4$c29tZXNhbHRzb21lc2FsdA$3i7Jk2D1kX9QmD3Ew8Q2pQh9Z1o0Jm4vXK0b3uGQpZk"
