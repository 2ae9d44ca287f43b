package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// PlatformKind describes what a platform's stock items are.
type PlatformKind string

const (
	// PlatformCookie pools session cookies.
	PlatformCookie PlatformKind = "cookie"
	// PlatformAccount pools account credentials.
	PlatformAccount PlatformKind = "account"
)

// ParsePlatformKind validates a kind name. An empty string means account.
func ParsePlatformKind(s string) (PlatformKind, error) {
	switch PlatformKind(s) {
	case "":
		return PlatformAccount, nil
	case PlatformCookie, PlatformAccount:
		return PlatformKind(s), nil
	default:
		return "", fmt.Errorf("unknown platform kind %q", s)
	}
}

// Platform is a named pool of claimable stock items.
type Platform struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"` // Display name as entered by the admin
	Kind      PlatformKind `json:"kind"`
	Price     int64        `json:"price"`
	Stock     int          `json:"stock"` // Item count at read time
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// PlatformKey returns the lookup key for a platform name.
// "Netflix", " NETFLIX " and "ｎｅｔｆｌｉｘ" all map to "netflix".
func PlatformKey(name string) string {
	s := norm.NFKC.String(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), " ")
	// A Caser carries state, so each call gets its own.
	return cases.Fold().String(s)
}

// CleanStockItems trims each item and drops blank ones.
// Duplicates are kept: two identical lines are two deliverable items.
func CleanStockItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
