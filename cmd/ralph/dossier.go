package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/priors"
)

// fileDossierFetcher resolves an entity's dossier from a directory
// holding one JSON file per entity, named "<entity_id>.json". The
// dossier generator itself is out of scope; this is the thinnest read
// boundary that satisfies scheduler.DossierFetcher against that
// generator's output directory.
type fileDossierFetcher struct {
	dir string
}

func newFileDossierFetcher(dir string) *fileDossierFetcher {
	return &fileDossierFetcher{dir: dir}
}

func (f *fileDossierFetcher) Dossier(ctx context.Context, entity domain.Entity) (*priors.Dossier, error) {
	path := filepath.Join(f.dir, string(entity.ID)+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dossier for %s: %w", entity.ID, err)
	}
	dossier, err := priors.ParseDossier(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dossier for %s: %w", entity.ID, err)
	}
	return dossier, nil
}
