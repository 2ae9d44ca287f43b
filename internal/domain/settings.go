package domain

import (
	"strings"
	"time"
)

// Settings holds admin-tunable values read by the engines at operation time.
type Settings struct {
	ReferralBonus    int64     `json:"referral_bonus"`
	RequiredChannels []string  `json:"required_channels"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NormalizeChannels trims channel handles, adds the leading "@" to bare
// usernames and removes duplicates. Numeric chat ids are kept as-is.
func NormalizeChannels(channels []string) []string {
	seen := make(map[string]bool, len(channels))
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			continue
		}
		if !strings.HasPrefix(ch, "@") && !strings.HasPrefix(ch, "-") {
			ch = "@" + ch
		}
		key := strings.ToLower(ch)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ch)
	}
	return out
}

// Stats is a point-in-time summary of the ledger.
type Stats struct {
	Users           int64          `json:"users"`
	BannedUsers     int64          `json:"banned_users"`
	PointsHeld      int64          `json:"points_held"`
	KeysTotal       int64          `json:"keys_total"`
	KeysClaimed     int64          `json:"keys_claimed"`
	Referrals       int64          `json:"referrals"`
	OpenReports     int64          `json:"open_reports"`
	StockByPlatform map[string]int `json:"stock_by_platform"`
}
