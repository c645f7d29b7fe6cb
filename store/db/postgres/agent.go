package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/linhvu2695/aiven/store"
)

func (d *DB) ListAgents(ctx context.Context, find *store.FindAgent) ([]*store.Agent, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}

	query := `
		SELECT id, name, model_id, persona, tone, description, tools
		FROM agent
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list agents")
	}
	defer rows.Close()

	list := make([]*store.Agent, 0)
	for rows.Next() {
		a := &store.Agent{}
		var tools string
		if err := rows.Scan(&a.ID, &a.Name, &a.ModelID, &a.Persona, &a.Tone, &a.Description, &tools); err != nil {
			return nil, errors.Wrap(err, "failed to scan agent")
		}
		if err := json.Unmarshal([]byte(tools), &a.Tools); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal tools for agent %s", a.ID)
		}
		list = append(list, a)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate agents")
	}

	return list, nil
}

func (d *DB) UpsertAgent(ctx context.Context, upsert *store.Agent) (*store.Agent, error) {
	tools, err := json.Marshal(upsert.Tools)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal tools")
	}

	fields := []string{"id", "name", "model_id", "persona", "tone", "description", "tools"}
	args := []any{upsert.ID, upsert.Name, upsert.ModelID, upsert.Persona, upsert.Tone, upsert.Description, string(tools)}
	stmt := `INSERT INTO agent (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			model_id = EXCLUDED.model_id,
			persona = EXCLUDED.persona,
			tone = EXCLUDED.tone,
			description = EXCLUDED.description,
			tools = EXCLUDED.tools`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to upsert agent")
	}

	return upsert, nil
}
