package domain

import "time"

// Referral records that ReferrerID was paid for bringing in ReferredID.
// A referred user appears in at most one referral. The bonus is not stored:
// it comes from settings at credit time.
type Referral struct {
	ReferrerID string    `json:"referrer_id"`
	ReferredID string    `json:"referred_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReferralOutcome is the result of one credit attempt.
type ReferralOutcome string

const (
	// ReferralOutcomeCredited means the referrer was paid by this call.
	ReferralOutcomeCredited ReferralOutcome = "credited"
	// ReferralOutcomePending means the gating check failed; nothing changed.
	ReferralOutcomePending ReferralOutcome = "pending"
	// ReferralOutcomeAlreadyCredited means an earlier call already paid the referrer.
	ReferralOutcomeAlreadyCredited ReferralOutcome = "already_credited"
	// ReferralOutcomeVerified means the user passed the gate but had no referrer to pay.
	ReferralOutcomeVerified ReferralOutcome = "verified"
)
