package server

import (
	"sitedeck/internal/domain"
)

// TileDTO mirrors domain.Tile on the wire.
type TileDTO struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Size     string `json:"size" enum:"small,medium,large"`
	Priority int    `json:"priority"`
}

type LayoutBody struct {
	Tiles []TileDTO `json:"tiles"`
}

type SaveLayoutRequest struct {
	UserID string     `json:"user_id" minLength:"1"`
	Role   string     `json:"role" minLength:"1"`
	Layout LayoutBody `json:"layout"`
}

type QueryRequest struct {
	SQL string `json:"sql"`
}

type QueryResponse struct {
	Success bool             `json:"success"`
	Results []map[string]any `json:"results,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type WorkerMessageRequest struct {
	UserID  string         `json:"user_id" minLength:"1"`
	Role    string         `json:"role" minLength:"1"`
	Message string         `json:"message" minLength:"1"`
	Context map[string]any `json:"context,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type CreateTaskRequest struct {
	ProjectID   int64   `json:"project_id"`
	Name        string  `json:"name" minLength:"1"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"Pending,In Progress,Completed,Delayed,Cancelled"`
	Priority    *string `json:"priority,omitempty" enum:"Low,Medium,High"`
	AssignedTo  *int64  `json:"assigned_to,omitempty"`
	DueDate     string  `json:"due_date" format:"date"`
}

type UpdateTaskRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"Pending,In Progress,Completed,Delayed,Cancelled"`
	Priority    *string `json:"priority,omitempty" enum:"Low,Medium,High"`
	AssignedTo  *int64  `json:"assigned_to,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date"`
}

func tileDTOs(tiles []domain.Tile) []TileDTO {
	out := make([]TileDTO, len(tiles))
	for i, t := range tiles {
		out[i] = TileDTO{ID: t.ID, Title: t.Title, Size: t.Size, Priority: t.Priority}
	}
	return out
}

func tilesFromDTOs(tiles []TileDTO) []domain.Tile {
	out := make([]domain.Tile, len(tiles))
	for i, t := range tiles {
		out[i] = domain.Tile{ID: t.ID, Title: t.Title, Size: t.Size, Priority: t.Priority}
	}
	return out
}
