package domain

import (
	"fmt"
	"time"
)

// KeyKind is the tier of a redeemable key.
type KeyKind string

const (
	// KeyStandard is the default tier.
	KeyStandard KeyKind = "standard"
	// KeyPremium is the high-value tier.
	KeyPremium KeyKind = "premium"
)

// keyPrefixes maps each tier to the prefix printed on its codes.
var keyPrefixes = map[KeyKind]string{
	KeyStandard: "NKEY",
	KeyPremium:  "PKEY",
}

// ParseKeyKind validates a tier name. An empty string means standard.
func ParseKeyKind(s string) (KeyKind, error) {
	if s == "" {
		return KeyStandard, nil
	}
	k := KeyKind(s)
	if _, ok := keyPrefixes[k]; !ok {
		return "", fmt.Errorf("unknown key kind %q", s)
	}
	return k, nil
}

// Prefix returns the code prefix for this tier.
func (k KeyKind) Prefix() string {
	if p, ok := keyPrefixes[k]; ok {
		return p
	}
	return keyPrefixes[KeyStandard]
}

// Key is a single-use code redeemable for a fixed number of points.
// Value fields are immutable; the claim fields transition exactly once.
type Key struct {
	Code      string     `json:"code"`
	Kind      KeyKind    `json:"kind"`
	Points    int64      `json:"points"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	ClaimedBy string     `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// IsClaimed returns true if the key has been redeemed.
func (k *Key) IsClaimed() bool {
	return k.ClaimedAt != nil
}

// Status returns a human-readable status string for the key.
func (k *Key) Status() string {
	if k.IsClaimed() {
		return "claimed"
	}
	return "available"
}
