package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"sitedeck/internal/domain"
)

// GetLayout returns the stored layout for (userID, role), or ErrNotFound
// when the pair has never been saved.
func (r Repo) GetLayout(ctx context.Context, userID, role string) (domain.DashboardLayout, error) {
	var l domain.DashboardLayout
	var tilesJSON string
	err := r.DB.QueryRowContext(ctx, `SELECT user_id,role,tiles_json,updated_at FROM dashboard_layouts WHERE user_id=? AND role=?`, userID, role).
		Scan(&l.UserID, &l.Role, &tilesJSON, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	if err != nil {
		return l, err
	}
	if err := json.Unmarshal([]byte(tilesJSON), &l.Tiles); err != nil {
		return l, err
	}
	return l, nil
}

// UpsertLayout stores the layout as given. Last write wins.
func (r Repo) UpsertLayout(ctx context.Context, l domain.DashboardLayout) error {
	tilesJSON, err := json.Marshal(l.Tiles)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO dashboard_layouts(user_id,role,tiles_json,updated_at) VALUES (?,?,?,?)
		ON CONFLICT(user_id,role) DO UPDATE SET tiles_json=excluded.tiles_json, updated_at=excluded.updated_at`,
		l.UserID, l.Role, string(tilesJSON), l.UpdatedAt)
	return err
}
