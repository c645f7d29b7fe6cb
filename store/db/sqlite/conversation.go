package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/linhvu2695/aiven/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	messages, err := json.Marshal(create.Messages)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal messages")
	}

	stmt := `
		INSERT INTO conversation (id, name, agent_id, messages, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.Name, create.AgentID, string(messages), create.CreatedTs, create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}

	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.AgentID != nil {
		where, args = append(where, "agent_id = ?"), append(args, *find.AgentID)
	}

	query := `
		SELECT id, name, agent_id, messages, created_ts, updated_ts
		FROM conversation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	defer rows.Close()

	list := make([]*store.Conversation, 0)
	for rows.Next() {
		c := &store.Conversation{}
		var messages string
		if err := rows.Scan(&c.ID, &c.Name, &c.AgentID, &messages, &c.CreatedTs, &c.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation")
		}
		if err := json.Unmarshal([]byte(messages), &c.Messages); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal messages for conversation %s", c.ID)
		}
		list = append(list, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate conversations")
	}

	return list, nil
}

func (d *DB) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}

	if update.Name != nil {
		set, args = append(set, "name = ?"), append(args, *update.Name)
	}
	if update.Messages != nil {
		messages, err := json.Marshal(*update.Messages)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal messages")
		}
		set, args = append(set, "messages = ?"), append(args, string(messages))
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *update.UpdatedTs)
	}

	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE conversation SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, name, agent_id, messages, created_ts, updated_ts`

	c := &store.Conversation{}
	var messages string
	err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&c.ID, &c.Name, &c.AgentID, &messages, &c.CreatedTs, &c.UpdatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Errorf("conversation %s not found", update.ID)
		}
		return nil, errors.Wrap(err, "failed to update conversation")
	}
	if err := json.Unmarshal([]byte(messages), &c.Messages); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal messages for conversation %s", c.ID)
	}

	return c, nil
}

func (d *DB) DeleteConversation(ctx context.Context, delete *store.DeleteConversation) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM conversation WHERE id = ?`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete conversation")
	}
	return nil
}
