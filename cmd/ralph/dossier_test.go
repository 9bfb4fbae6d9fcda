package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/scoutline/ralph/pkg/domain"
)

func TestFileDossierFetcher(t *testing.T) {
	dir := t.TempDir()
	raw := `{"metadata":{"entity_id":"e1","name":"Riverside United"},"insights":[]}`
	if err := os.WriteFile(filepath.Join(dir, "e1.json"), []byte(raw), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	fetcher := newFileDossierFetcher(dir)
	dossier, err := fetcher.Dossier(context.Background(), domain.Entity{ID: "e1"})
	if err != nil {
		t.Fatalf("Dossier returned error: %v", err)
	}
	if dossier.Metadata.EntityID != "e1" {
		t.Fatalf("unexpected dossier: %+v", dossier)
	}
}

func TestFileDossierFetcherMissingFile(t *testing.T) {
	fetcher := newFileDossierFetcher(t.TempDir())
	if _, err := fetcher.Dossier(context.Background(), domain.Entity{ID: "unknown"}); err == nil {
		t.Fatal("expected an error for a missing dossier file")
	}
}
