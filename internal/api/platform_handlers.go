package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pointsbot/pointsbot-server/internal/domain"
)

func (s *Server) registerPlatformRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPlatforms",
		Method:      http.MethodGet,
		Path:        "/api/v1/platforms",
		Summary:     "List platforms",
		Description: "Returns every platform with its price and current stock count",
		Tags:        []string{tagPlatforms},
		Security:    bearerSecurity,
	}, s.handleListPlatforms)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlatform",
		Method:      http.MethodGet,
		Path:        "/api/v1/platforms/{name}",
		Summary:     "Get platform",
		Description: "Returns one platform, matched by name ignoring case",
		Tags:        []string{tagPlatforms},
		Security:    bearerSecurity,
	}, s.handleGetPlatform)
}

// === DTOs ===

// PlatformPathInput selects a platform by name.
type PlatformPathInput struct {
	Name string `path:"name" doc:"Platform name, matched ignoring case"`
}

// PlatformOutput wraps a platform for Huma.
type PlatformOutput struct {
	Body *domain.Platform
}

// ListPlatformsResponse lists platforms.
type ListPlatformsResponse struct {
	Platforms []*domain.Platform `json:"platforms" doc:"Platforms ordered by name"`
}

// ListPlatformsOutput wraps the platform list for Huma.
type ListPlatformsOutput struct {
	Body ListPlatformsResponse
}

// === Handlers ===

func (s *Server) handleListPlatforms(ctx context.Context, _ *struct{}) (*ListPlatformsOutput, error) {
	if _, err := s.RequireOperator(ctx); err != nil {
		return nil, err
	}

	platforms, err := s.services.Platforms.List(ctx)
	if err != nil {
		return nil, err
	}
	if platforms == nil {
		platforms = []*domain.Platform{}
	}
	return &ListPlatformsOutput{Body: ListPlatformsResponse{Platforms: platforms}}, nil
}

func (s *Server) handleGetPlatform(ctx context.Context, input *PlatformPathInput) (*PlatformOutput, error) {
	if _, err := s.RequireOperator(ctx); err != nil {
		return nil, err
	}

	platform, err := s.services.Platforms.Get(ctx, pathName(input.Name))
	if err != nil {
		return nil, err
	}
	return &PlatformOutput{Body: platform}, nil
}
