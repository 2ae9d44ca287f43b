package domain

import "time"

// ReferralState is where a user sits in the referral lifecycle.
type ReferralState string

const (
	// ReferralUnreferred means the user arrived without a referral code.
	ReferralUnreferred ReferralState = "unreferred"
	// ReferralPending means a referrer is recorded but the gating check has not passed yet.
	ReferralPending ReferralState = "pending"
	// ReferralCredited is terminal: the referrer has been paid for this user.
	ReferralCredited ReferralState = "credited"
)

// User is a chat-platform user known to the ledger.
// Users are created on first contact and never deleted.
type User struct {
	ID              string    `json:"id"` // Stable chat-platform user id
	DisplayName     string    `json:"display_name"`
	JoinedAt        time.Time `json:"joined_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Points          int64     `json:"points"`
	Referrals       int64     `json:"referrals"`
	Banned          bool      `json:"banned"`
	Verified        bool      `json:"verified"`
	PendingReferrer string    `json:"pending_referrer,omitempty"` // Cleared once the referral resolves
	ReferredBy      string    `json:"referred_by,omitempty"`      // Set when the referral is credited
}

// ReferralState derives the user's referral lifecycle state.
func (u *User) ReferralState() ReferralState {
	switch {
	case u.ReferredBy != "":
		return ReferralCredited
	case u.PendingReferrer != "":
		return ReferralPending
	default:
		return ReferralUnreferred
	}
}

// MaxPoints bounds any single grant of points: a key's value, an admin
// adjustment or the referral bonus.
const MaxPoints int64 = 1_000_000_000_000

// CanAfford reports whether the balance covers price.
func (u *User) CanAfford(price int64) bool {
	return u.Points >= price
}

// Admin is a user granted administrative rights over inventory and moderation.
// Owners are configured out of band and are never stored here.
type Admin struct {
	UserID    string    `json:"user_id"`
	AddedBy   string    `json:"added_by"`
	Banned    bool      `json:"banned"` // Banned admins keep their row but lose their rights
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the admin may currently act.
func (a *Admin) Active() bool {
	return !a.Banned
}
