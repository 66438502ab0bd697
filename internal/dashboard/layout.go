package dashboard

import (
	"sort"
	"strings"

	"sitedeck/internal/domain"
)

// defaultTiles holds the per-role starting layout, before the shared
// mail tile is appended. Unlisted roles fall back to the worker set.
var defaultTiles = map[string][]domain.Tile{
	"ceo": {
		{ID: "safety", Title: "Safety Statistics", Size: "small", Priority: 5},
		{ID: "tasks", Title: "Task Completion", Size: "small", Priority: 8},
		{ID: "finances", Title: "Financial Overview", Size: "large", Priority: 1},
		{ID: "projects", Title: "Project Overview", Size: "medium", Priority: 10},
	},
	"project-manager": {
		{ID: "tasks", Title: "Task Management", Size: "large", Priority: 1},
		{ID: "timeline", Title: "Project Timeline", Size: "medium", Priority: 2},
		{ID: "materials", Title: "Material Status", Size: "medium", Priority: 3},
		{ID: "projects", Title: "Project Overview", Size: "medium", Priority: 10},
	},
	"safety-officer": {
		{ID: "safety", Title: "Safety Reports", Size: "large", Priority: 1},
		{ID: "safetyTasks", Title: "Safety Tasks", Size: "medium", Priority: 2},
		{ID: "incidents", Title: "Incident Tracking", Size: "medium", Priority: 3},
		{ID: "projects", Title: "Project Overview", Size: "medium", Priority: 10},
	},
	"equipment-manager": {
		{ID: "equipment", Title: "Equipment Status", Size: "large", Priority: 1},
		{ID: "maintenance", Title: "Maintenance Schedule", Size: "medium", Priority: 2},
		{ID: "inventory", Title: "Equipment Inventory", Size: "medium", Priority: 3},
		{ID: "projects", Title: "Project Overview", Size: "medium", Priority: 10},
	},
	"engineer": {
		{ID: "tasks", Title: "My Tasks", Size: "large", Priority: 1},
		{ID: "materials", Title: "Materials Needed", Size: "medium", Priority: 2},
		{ID: "projects", Title: "Project Overview", Size: "medium", Priority: 3},
	},
	"worker": {
		{ID: "tasks", Title: "My Tasks", Size: "large", Priority: 1},
		{ID: "safety", Title: "Safety Reminders", Size: "medium", Priority: 2},
		{ID: "materials", Title: "Materials Needed", Size: "medium", Priority: 3},
		{ID: "projects", Title: "Project Overview", Size: "medium", Priority: 10},
	},
}

// DefaultTiles returns a fresh copy of the role's default layout, the
// shared mail tile appended, sorted ascending by priority. Unknown
// roles get the worker layout.
func DefaultTiles(role string) []domain.Tile {
	base, ok := defaultTiles[strings.ToLower(role)]
	if !ok {
		base = defaultTiles["worker"]
	}
	tiles := make([]domain.Tile, 0, len(base)+1)
	tiles = append(tiles, base...)
	tiles = append(tiles, domain.Tile{ID: "mail", Title: "Mail", Size: "small", Priority: 15})
	sort.SliceStable(tiles, func(i, j int) bool { return tiles[i].Priority < tiles[j].Priority })
	return tiles
}
