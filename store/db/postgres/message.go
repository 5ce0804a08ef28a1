package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/usetradechat/tradechat/store"
)

func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	fields := []string{"conversation_id", "role", "content", "created_ts"}
	args := []any{create.ConversationID, string(create.Role), create.Content, create.CreatedTs}

	stmt := `INSERT INTO message (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return create, nil
}

func (d *DB) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}

	// Transcript order: creation time ascending, insertion id as tiebreaker.
	query := `
		SELECT id, conversation_id, role, content, created_ts
		FROM message
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Message, 0)
	for rows.Next() {
		m := &store.Message{}
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = store.Role(role)
		list = append(list, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return list, nil
}
