// Package audit records ledger state transitions. Engines hand events to a
// Notifier, which queues them and fans them out to sinks in the background,
// so a slow or failing sink never delays or fails a ledger operation.
package audit

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what happened.
type Kind string

const (
	// KindKeyRedeemed is a key claimed and its points credited.
	KindKeyRedeemed Kind = "key.redeemed"
	// KindKeysGenerated is a batch of keys created by an admin.
	KindKeysGenerated Kind = "keys.generated"
	// KindItemClaimed is a stock item removed and its price debited.
	KindItemClaimed Kind = "item.claimed"
	// KindReferralCredited is a referrer paid for a verified referral.
	KindReferralCredited Kind = "referral.credited"
	// KindUserVerified is a user who passed the membership check without a referrer.
	KindUserVerified Kind = "user.verified"
	// KindUserRegistered is a first contact.
	KindUserRegistered Kind = "user.registered"
	// KindUserBanned covers both ban and unban; Details["banned"] says which.
	KindUserBanned Kind = "user.banned"
	// KindPointsAdjusted is an admin grant or deduction.
	KindPointsAdjusted Kind = "points.adjusted"
	// KindPlatformChanged covers platform create, rename, price change and removal.
	KindPlatformChanged Kind = "platform.changed"
	// KindStockAdded is a bulk stock append.
	KindStockAdded Kind = "stock.added"
	// KindStockRemoved is an item removed by an admin without a charge.
	KindStockRemoved Kind = "stock.removed"
	// KindAdminChanged covers admin add, remove, ban and unban.
	KindAdminChanged Kind = "admin.changed"
	// KindSettingsChanged is a referral bonus or required-channel update.
	KindSettingsChanged Kind = "settings.changed"
	// KindReportChanged covers report creation, claim and resolution.
	KindReportChanged Kind = "report.changed"
)

// Event is one audit record.
type Event struct {
	ID       string            `json:"id"`
	Kind     Kind              `json:"kind"`
	At       time.Time         `json:"at"`
	ActorID  string            `json:"actor_id,omitempty"` // Admin who acted, empty for user actions
	UserID   string            `json:"user_id,omitempty"`
	Platform string            `json:"platform,omitempty"`
	KeyCode  string            `json:"key_code,omitempty"`
	Points   int64             `json:"points,omitempty"`  // Amount moved, signed from the user's view
	Balance  int64             `json:"balance,omitempty"` // Balance after the change
	Details  map[string]string `json:"details,omitempty"`
}

// NewEvent creates an event of kind stamped with a fresh ID and the current time.
func NewEvent(kind Kind) Event {
	return Event{
		ID:   uuid.NewString(),
		Kind: kind,
		At:   time.Now().UTC(),
	}
}

// With returns a copy of e with a detail added.
func (e Event) With(key, value string) Event {
	details := make(map[string]string, len(e.Details)+1)
	maps.Copy(details, e.Details)
	details[key] = value
	e.Details = details
	return e
}
