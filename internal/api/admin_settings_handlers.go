package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pointsbot/pointsbot-server/internal/domain"
)

func (s *Server) registerAdminSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/settings",
		Summary:     "Get settings",
		Description: "Returns the referral bonus and the channels users must join",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "setReferralBonus",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/settings/referral-bonus",
		Summary:     "Set referral bonus",
		Description: "Changes the points paid per credited referral. Past referrals keep what they were paid.",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleSetReferralBonus)

	huma.Register(s.api, huma.Operation{
		OperationID: "setRequiredChannels",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/settings/channels",
		Summary:     "Replace required channels",
		Description: "Replaces the channel list. An empty list turns the membership check off.",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleSetRequiredChannels)

	huma.Register(s.api, huma.Operation{
		OperationID: "addRequiredChannel",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/settings/channels",
		Summary:     "Add required channel",
		Description: "Appends one channel. Bare names get an @ prefix.",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleAddRequiredChannel)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeRequiredChannel",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/settings/channels/{channel}",
		Summary:     "Remove required channel",
		Description: "Drops one channel from the list",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleRemoveRequiredChannel)
}

// === DTOs ===

// SettingsOutput wraps settings for Huma.
type SettingsOutput struct {
	Body *domain.Settings
}

// ReferralBonusRequest is the request body for setting the bonus.
type ReferralBonusRequest struct {
	Bonus int64 `json:"bonus" minimum:"0" doc:"Points paid per credited referral"`
}

// ReferralBonusInput wraps the bonus request for Huma.
type ReferralBonusInput struct {
	ActorHeader
	Body ReferralBonusRequest
}

// ChannelsRequest is the request body for replacing channels.
type ChannelsRequest struct {
	Channels []string `json:"channels" doc:"Channel usernames or numeric ids"`
}

// ChannelsInput wraps the channels request for Huma.
type ChannelsInput struct {
	ActorHeader
	Body ChannelsRequest
}

// ChannelRequest is the request body for adding one channel.
type ChannelRequest struct {
	Channel string `json:"channel" doc:"Channel username or numeric id"`
}

// ChannelInput wraps the add-channel request for Huma.
type ChannelInput struct {
	ActorHeader
	Body ChannelRequest
}

// ChannelPathInput selects a channel by path.
type ChannelPathInput struct {
	ActorHeader
	Channel string `path:"channel" doc:"Channel username or numeric id"`
}

// === Handlers ===

func (s *Server) handleGetSettings(ctx context.Context, input *ActorInput) (*SettingsOutput, error) {
	if _, err := s.RequireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}

	settings, err := s.services.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: settings}, nil
}

func (s *Server) handleSetReferralBonus(ctx context.Context, input *ReferralBonusInput) (*SettingsOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	settings, err := s.services.Settings.SetReferralBonus(ctx, actorID, input.Body.Bonus)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: settings}, nil
}

func (s *Server) handleSetRequiredChannels(ctx context.Context, input *ChannelsInput) (*SettingsOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	settings, err := s.services.Settings.SetRequiredChannels(ctx, actorID, input.Body.Channels)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: settings}, nil
}

func (s *Server) handleAddRequiredChannel(ctx context.Context, input *ChannelInput) (*SettingsOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	settings, err := s.services.Settings.AddRequiredChannel(ctx, actorID, input.Body.Channel)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: settings}, nil
}

func (s *Server) handleRemoveRequiredChannel(ctx context.Context, input *ChannelPathInput) (*SettingsOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	settings, err := s.services.Settings.RemoveRequiredChannel(ctx, actorID, pathName(input.Channel))
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: settings}, nil
}
