package repo

import (
	"context"

	"sitedeck/internal/domain"
)

func (r Repo) InsertChatMessage(ctx context.Context, m domain.ChatMessage) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO conversation_history(id,user_id,role,user_message,ai_response,ts) VALUES (?,?,?,?,?,?)`,
		m.ID, m.UserID, m.Role, m.UserMessage, m.AIResponse, m.TS)
	return err
}

// ListChatHistory returns the most recent exchanges for (userID, role),
// oldest first, capped at limit.
func (r Repo) ListChatHistory(ctx context.Context, userID, role string, limit int) ([]domain.ChatMessage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,user_id,role,user_message,ai_response,ts FROM (
			SELECT id,user_id,role,user_message,ai_response,ts FROM conversation_history
			WHERE user_id=? AND role=? ORDER BY ts DESC, id DESC LIMIT ?
		) ORDER BY ts ASC, id ASC`, userID, role, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.UserMessage, &m.AIResponse, &m.TS); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
