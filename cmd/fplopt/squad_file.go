package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
)

// readSquadFile loads a squad saved as JSON. Position names are normalized.
func readSquadFile(path string) (*models.Squad, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read squad file: %w", err)
	}

	var squad models.Squad
	if err := json.Unmarshal(data, &squad); err != nil {
		return nil, fmt.Errorf("failed to parse squad file %s: %w", path, err)
	}
	if len(squad.Players) == 0 {
		return nil, fmt.Errorf("squad file %s lists no players", path)
	}
	for i, p := range squad.Players {
		if p.Position == "" {
			continue
		}
		pos, err := models.ParsePosition(p.Position)
		if err != nil {
			return nil, fmt.Errorf("squad player %q: %w", p.Name, err)
		}
		squad.Players[i].Position = string(pos)
	}
	return &squad, nil
}

// writeSquadTemplate writes the fifteen slot template, refusing to overwrite
// an existing file unless force is set.
func writeSquadTemplate(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(services.TemplateSquad(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
