package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/service"
)

// maxStockUploadBytes caps a stock upload request body.
const maxStockUploadBytes = 8 << 20

func (s *Server) registerAdminPlatformRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createPlatform",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/platforms",
		Summary:     "Create platform",
		Description: "Adds a platform with an empty stock pool. Names are unique ignoring case.",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleCreatePlatform)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePlatform",
		Method:      http.MethodPatch,
		Path:        "/api/v1/admin/platforms/{name}",
		Summary:     "Update platform",
		Description: "Changes a platform's price, display name, or both",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleUpdatePlatform)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePlatform",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/platforms/{name}",
		Summary:     "Delete platform",
		Description: "Removes a platform together with its remaining stock",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleDeletePlatform)

	huma.Register(s.api, huma.Operation{
		OperationID:  "addStock",
		Method:       http.MethodPost,
		Path:         "/api/v1/admin/platforms/{name}/stock",
		Summary:      "Add stock",
		Description:  "Appends items to a platform's pool, given as a list, as uploaded text with one item per line, or both",
		Tags:         []string{tagAdmin},
		Security:     bearerSecurity,
		MaxBodyBytes: maxStockUploadBytes,
	}, s.handleAddStock)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStock",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/platforms/{name}/stock",
		Summary:     "Get stock",
		Description: "Returns a snapshot of a platform's remaining items",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleGetStock)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeStockItem",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/platforms/{name}/stock/remove",
		Summary:     "Remove stock item",
		Description: "Takes one item out of the pool without charging anyone and returns it",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleRemoveStockItem)
}

// === DTOs ===

// ActorHeader carries the chat user id of the admin issuing a command.
type ActorHeader struct {
	ActorID string `header:"X-Actor-ID" doc:"Chat user id of the acting admin"`
}

// CreatePlatformRequest is the request body for creating a platform.
type CreatePlatformRequest struct {
	Name  string `json:"name" doc:"Display name"`
	Kind  string `json:"kind,omitempty" enum:"cookie,account" doc:"Item kind, defaults to account"`
	Price int64  `json:"price,omitempty" minimum:"0" doc:"Points charged per claim, defaults to 0"`
}

// CreatePlatformInput wraps the create request for Huma.
type CreatePlatformInput struct {
	ActorHeader
	Body CreatePlatformRequest
}

// UpdatePlatformRequest is the request body for updating a platform.
type UpdatePlatformRequest struct {
	Price *int64  `json:"price,omitempty" doc:"New price"`
	Name  *string `json:"name,omitempty" doc:"New display name"`
}

// UpdatePlatformInput wraps the update request for Huma.
type UpdatePlatformInput struct {
	ActorHeader
	Name string `path:"name" doc:"Current platform name"`
	Body UpdatePlatformRequest
}

// AdminPlatformInput selects a platform for an admin command.
type AdminPlatformInput struct {
	ActorHeader
	Name string `path:"name" doc:"Platform name, matched ignoring case"`
}

// AddStockRequest is the request body for adding stock.
type AddStockRequest struct {
	Items []string `json:"items,omitempty" doc:"Items to append"`
	Text  string   `json:"text,omitempty" doc:"Uploaded file contents, one item per line"`
}

// AddStockInput wraps the add-stock request for Huma.
type AddStockInput struct {
	ActorHeader
	Name string `path:"name" doc:"Platform name, matched ignoring case"`
	Body AddStockRequest
}

// StockCountResponse reports a pool size after a change.
type StockCountResponse struct {
	Platform string `json:"platform" doc:"Platform name as requested"`
	Stock    int    `json:"stock" doc:"Items now in the pool"`
}

// StockCountOutput wraps the stock count for Huma.
type StockCountOutput struct {
	Body StockCountResponse
}

// StockResponse lists a pool's items.
type StockResponse struct {
	Platform string   `json:"platform" doc:"Platform name as requested"`
	Items    []string `json:"items" doc:"Remaining items"`
}

// StockOutput wraps the stock list for Huma.
type StockOutput struct {
	Body StockResponse
}

// RemovedItemResponse carries an item taken out of a pool.
type RemovedItemResponse struct {
	Platform string `json:"platform" doc:"Platform name as requested"`
	Item     string `json:"item" doc:"The removed item"`
}

// RemovedItemOutput wraps the removed item for Huma.
type RemovedItemOutput struct {
	Body RemovedItemResponse
}

// === Handlers ===

func (s *Server) handleCreatePlatform(ctx context.Context, input *CreatePlatformInput) (*PlatformOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	platform, err := s.services.Platforms.Create(ctx, actorID, service.CreatePlatformRequest{
		Name:  input.Body.Name,
		Kind:  input.Body.Kind,
		Price: input.Body.Price,
	})
	if err != nil {
		return nil, err
	}
	return &PlatformOutput{Body: platform}, nil
}

func (s *Server) handleUpdatePlatform(ctx context.Context, input *UpdatePlatformInput) (*PlatformOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}
	if input.Body.Price == nil && input.Body.Name == nil {
		return nil, domainerrors.Validation("nothing to update: give price, name, or both")
	}

	name := pathName(input.Name)
	var platform *domain.Platform
	if input.Body.Price != nil {
		if platform, err = s.services.Platforms.SetPrice(ctx, actorID, name, *input.Body.Price); err != nil {
			return nil, err
		}
	}
	if input.Body.Name != nil {
		if platform, err = s.services.Platforms.Rename(ctx, actorID, name, *input.Body.Name); err != nil {
			return nil, err
		}
	}
	return &PlatformOutput{Body: platform}, nil
}

func (s *Server) handleDeletePlatform(ctx context.Context, input *AdminPlatformInput) (*MessageOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Platforms.Delete(ctx, actorID, pathName(input.Name)); err != nil {
		return nil, err
	}
	return message("platform deleted"), nil
}

func (s *Server) handleAddStock(ctx context.Context, input *AddStockInput) (*StockCountOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	name := pathName(input.Name)
	items := append([]string(nil), input.Body.Items...)
	if input.Body.Text != "" {
		items = append(items, service.SplitStockLines(input.Body.Text)...)
	}

	count, err := s.services.Platforms.AddStock(ctx, actorID, name, items)
	if err != nil {
		return nil, err
	}
	return &StockCountOutput{Body: StockCountResponse{Platform: name, Stock: count}}, nil
}

func (s *Server) handleGetStock(ctx context.Context, input *AdminPlatformInput) (*StockOutput, error) {
	if _, err := s.RequireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}

	name := pathName(input.Name)
	items, err := s.services.Platforms.Stock(ctx, name)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []string{}
	}
	return &StockOutput{Body: StockResponse{Platform: name, Items: items}}, nil
}

func (s *Server) handleRemoveStockItem(ctx context.Context, input *AdminPlatformInput) (*RemovedItemOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	name := pathName(input.Name)
	item, err := s.services.Platforms.RemoveItem(ctx, actorID, name)
	if err != nil {
		return nil, err
	}
	return &RemovedItemOutput{Body: RemovedItemResponse{Platform: name, Item: item}}, nil
}
