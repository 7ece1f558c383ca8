package store

import (
	"context"
	"embed"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

//go:embed presets/personas.json
var presetFS embed.FS

type presetPersona struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

// seedPresets syncs the built-in personas: presets dropped from the bundle
// are deleted, current ones are upserted. Custom personas are untouched.
func (s *Store) seedPresets(ctx context.Context) error {
	data, err := presetFS.ReadFile("presets/personas.json")
	if err != nil {
		return errors.Wrap(err, "reading preset bundle")
	}
	var presets []presetPersona
	if err := json.Unmarshal(data, &presets); err != nil {
		return errors.Wrap(err, "decoding preset bundle")
	}
	if len(presets) == 0 {
		return nil
	}

	names := make([]any, 0, len(presets))
	placeholders := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
		placeholders = append(placeholders, "?")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"DELETE FROM personas WHERE is_preset = 1 AND name NOT IN ("+strings.Join(placeholders, ",")+")",
		names...,
	)
	if err != nil {
		return errors.Wrap(err, "removing stale presets")
	}

	for _, p := range presets {
		_, err = tx.Exec(
			"INSERT OR REPLACE INTO personas (name, description, system_prompt, is_preset) VALUES (?, ?, ?, 1)",
			p.Name, p.Description, p.SystemPrompt,
		)
		if err != nil {
			return errors.Wrapf(err, "upserting preset %s", p.Name)
		}
	}
	return errors.Wrap(tx.Commit(), "committing preset seed")
}
