package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/service"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

func (s *Server) registerAdminKeyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "generateKeys",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/keys",
		Summary:     "Generate keys",
		Description: "Creates a batch of unclaimed keys. The whole batch is stored or none of it is.",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleGenerateKeys)

	huma.Register(s.api, huma.Operation{
		OperationID: "listKeys",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/keys",
		Summary:     "List keys",
		Description: "Lists keys, newest first, optionally filtered by claim status and kind",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleListKeys)

	huma.Register(s.api, huma.Operation{
		OperationID: "getKey",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/keys/{code}",
		Summary:     "Get key",
		Description: "Returns one key with its claim status",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleGetKey)
}

// === DTOs ===

// GenerateKeysRequest is the request body for generating keys.
type GenerateKeysRequest struct {
	Count  int    `json:"count" minimum:"1" maximum:"500" doc:"Number of keys to create"`
	Kind   string `json:"kind,omitempty" enum:"standard,premium" doc:"Key kind, defaults to standard"`
	Points int64  `json:"points" minimum:"1" doc:"Points each key is worth"`
}

// GenerateKeysInput wraps the generate request for Huma.
type GenerateKeysInput struct {
	ActorHeader
	Body GenerateKeysRequest
}

// KeyListResponse lists keys.
type KeyListResponse struct {
	Keys []*domain.Key `json:"keys" doc:"Keys"`
}

// KeyListOutput wraps the key list for Huma.
type KeyListOutput struct {
	Body KeyListResponse
}

// ListKeysInput filters a key listing.
type ListKeysInput struct {
	ActorHeader
	Claimed string `query:"claimed" enum:"true,false" doc:"Only claimed (true) or unclaimed (false) keys"`
	Kind    string `query:"kind" enum:"standard,premium" doc:"Only keys of this kind"`
	Limit   int    `query:"limit" minimum:"0" maximum:"1000" doc:"Maximum keys returned, defaults to 100"`
}

// KeyInput selects a key by code.
type KeyInput struct {
	ActorHeader
	Code string `path:"code" doc:"Key code"`
}

// KeyOutput wraps a key for Huma.
type KeyOutput struct {
	Body KeyResponse
}

// KeyResponse is a key with its derived status.
type KeyResponse struct {
	domain.Key
	Status string `json:"status" doc:"available or claimed"`
}

// === Handlers ===

func (s *Server) handleGenerateKeys(ctx context.Context, input *GenerateKeysInput) (*KeyListOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	keys, err := s.services.Keys.Generate(ctx, actorID, service.GenerateKeysRequest{
		Count:  input.Body.Count,
		Kind:   input.Body.Kind,
		Points: input.Body.Points,
	})
	if err != nil {
		return nil, err
	}
	return &KeyListOutput{Body: KeyListResponse{Keys: keys}}, nil
}

func (s *Server) handleListKeys(ctx context.Context, input *ListKeysInput) (*KeyListOutput, error) {
	if _, err := s.RequireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}

	claimed, err := parseOptionalBool("claimed", input.Claimed)
	if err != nil {
		return nil, err
	}
	var kind domain.KeyKind
	if input.Kind != "" {
		if kind, err = domain.ParseKeyKind(input.Kind); err != nil {
			return nil, domainerrors.Validation(err.Error())
		}
	}

	keys, err := s.services.Keys.List(ctx, store.KeyFilter{Claimed: claimed, Kind: kind, Limit: input.Limit})
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []*domain.Key{}
	}
	return &KeyListOutput{Body: KeyListResponse{Keys: keys}}, nil
}

func (s *Server) handleGetKey(ctx context.Context, input *KeyInput) (*KeyOutput, error) {
	if _, err := s.RequireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}

	key, err := s.services.Keys.Get(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	return &KeyOutput{Body: KeyResponse{Key: *key, Status: key.Status()}}, nil
}
