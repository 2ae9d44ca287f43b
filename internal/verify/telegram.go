package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/ratelimit"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	defaultTimeout = 5 * time.Second
	defaultRPS     = 20.0
	defaultBurst   = 5

	// Cap on a getChatMember response body.
	maxResponseBytes = 64 << 10
)

// Sentinel errors for Bot API calls.
var (
	ErrNoToken     = errors.New("telegram: no bot token configured")
	ErrRateLimited = errors.New("telegram: rate limited by server")
	ErrServer      = errors.New("telegram: server error")
	ErrAPI         = errors.New("telegram: api error")
)

// TelegramConfig configures a TelegramChecker.
type TelegramConfig struct {
	BotToken string
	BaseURL  string        // Defaults to https://api.telegram.org
	Timeout  time.Duration // Per getChatMember call
	RPS      float64       // Per channel
	Burst    int
}

// TelegramChecker checks membership with the Bot API's getChatMember method,
// calling it once per required channel.
type TelegramChecker struct {
	cfg      TelegramConfig
	channels ChannelSource
	http     *http.Client
	limiter  *ratelimit.KeyedRateLimiter
	logger   *slog.Logger
}

// NewTelegramChecker creates a checker reading required channels from channels.
func NewTelegramChecker(cfg TelegramConfig, channels ChannelSource, logger *slog.Logger) *TelegramChecker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RPS <= 0 {
		cfg.RPS = defaultRPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	return &TelegramChecker{
		cfg:      cfg,
		channels: channels,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  ratelimit.New(cfg.RPS, cfg.Burst),
		logger:   logger,
	}
}

// Close releases the rate limiter.
func (c *TelegramChecker) Close() {
	c.limiter.Stop()
}

// IsMember reports whether userID is a member of every required channel.
// With no channels required everyone passes.
func (c *TelegramChecker) IsMember(ctx context.Context, userID string) (bool, error) {
	channels, err := c.channels.RequiredChannels(ctx)
	if err != nil {
		return false, fmt.Errorf("load required channels: %w", err)
	}
	if len(channels) == 0 {
		return true, nil
	}
	if c.cfg.BotToken == "" {
		return false, ErrNoToken
	}

	for _, channel := range channels {
		ok, err := c.memberOf(ctx, channel, userID)
		if err != nil {
			return false, fmt.Errorf("check %s: %w", channel, err)
		}
		if !ok {
			c.logger.Debug("user not in required channel",
				slog.String("user_id", userID),
				slog.String("channel", channel))
			return false, nil
		}
	}
	return true, nil
}

type chatMemberResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
	Result      struct {
		Status   string `json:"status"`
		IsMember bool   `json:"is_member"`
	} `json:"result"`
}

func (c *TelegramChecker) memberOf(ctx context.Context, channel, userID string) (bool, error) {
	if err := c.limiter.Wait(ctx, channel); err != nil {
		return false, fmt.Errorf("rate limit wait: %w", err)
	}

	query := url.Values{}
	query.Set("chat_id", channel)
	query.Set("user_id", userID)
	endpoint := c.cfg.BaseURL + "/bot" + c.cfg.BotToken + "/getChatMember?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of the error.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return false, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, ErrRateLimited
	case resp.StatusCode >= 500:
		return false, ErrServer
	}

	var parsed chatMemberResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !parsed.OK {
		// Telegram answers 400 "user not found" for users who never joined.
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(parsed.Description), "user not found") {
			return false, nil
		}
		return false, fmt.Errorf("%w: %d %s", ErrAPI, parsed.ErrorCode, parsed.Description)
	}

	return isMemberStatus(parsed.Result.Status, parsed.Result.IsMember), nil
}

// isMemberStatus maps a ChatMember status to membership.
// Restricted members still count when is_member is set.
func isMemberStatus(status string, isMember bool) bool {
	switch status {
	case "creator", "administrator", "member":
		return true
	case "restricted":
		return isMember
	default:
		return false
	}
}
