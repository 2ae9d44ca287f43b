// Package verify answers whether a chat user has joined every channel the
// operators require before their referral counts.
package verify

import (
	"context"
)

// Checker reports whether a user passes the membership gate.
// An error means the answer is unknown; callers treat it as not a member.
type Checker interface {
	IsMember(ctx context.Context, userID string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, userID string) (bool, error)

// IsMember implements Checker.
func (f CheckerFunc) IsMember(ctx context.Context, userID string) (bool, error) {
	return f(ctx, userID)
}

// ChannelSource supplies the channels to check at call time, so admin edits
// take effect without a restart.
type ChannelSource interface {
	RequiredChannels(ctx context.Context) ([]string, error)
}

// StaticChannels is a fixed ChannelSource.
type StaticChannels []string

// RequiredChannels implements ChannelSource.
func (s StaticChannels) RequiredChannels(context.Context) ([]string, error) {
	return s, nil
}
