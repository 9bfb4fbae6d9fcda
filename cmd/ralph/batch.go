package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scoutline/ralph/pkg/domain"
)

// batchEntity is the YAML shape of one row in a --batch file.
type batchEntity struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// loadBatch reads a YAML list of entities to run in one process
// invocation (SPEC_FULL.md §6's batch-driven scheduling surface).
func loadBatch(path string) ([]domain.Entity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	var rows []batchEntity
	if err := yaml.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	entities := make([]domain.Entity, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			return nil, fmt.Errorf("batch file entry missing id")
		}
		entities = append(entities, domain.Entity{ID: domain.EntityID(r.ID), Name: r.Name})
	}
	return entities, nil
}
