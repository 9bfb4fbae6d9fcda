package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// SourceTypeEntry holds one row of the static trust table (spec.md
// §4.3/§4.7): a source type's credibility prior and hop multiplier.
type SourceTypeEntry struct {
	Credibility    float64 `yaml:"credibility"`
	HopMultiplier float64 `yaml:"hop_multiplier"`
}

// DefaultSourceTypeTable is the canonical default named in spec.md
// §4.3/§4.7, expressed as configuration per SPEC_FULL.md §9.
func DefaultSourceTypeTable() map[string]SourceTypeEntry {
	return map[string]SourceTypeEntry{
		"partnership_announcement": {Credibility: 0.90, HopMultiplier: 1.2},
		"tech_news":                {Credibility: 0.75, HopMultiplier: 1.1},
		"press_release":            {Credibility: 0.70, HopMultiplier: 1.0},
		"careers_posting":          {Credibility: 0.60, HopMultiplier: 0.8},
		"company_blog":             {Credibility: 0.45, HopMultiplier: 0.6},
		"social_operational":       {Credibility: 0.20, HopMultiplier: 0.2},
		"official_site":            {Credibility: 0.10, HopMultiplier: 0.1},
		// Not in the §4.3 table verbatim; given neutral defaults so the
		// closed SourceType enum always resolves to a row.
		"leadership_job_posting": {Credibility: 0.60, HopMultiplier: 0.8},
		"tender_portal":          {Credibility: 0.80, HopMultiplier: 1.0},
		"annual_report":          {Credibility: 0.65, HopMultiplier: 0.7},
	}
}

// DefaultKeywordTable is the closed future-action keyword set from
// spec.md §4.5.
func DefaultKeywordTable() []string {
	return []string{
		"seeking", "hiring", "recruiting", "looking for", "procurement",
		"rfp", "tender", "vendor", "partner", "implement", "deploy",
		"evaluating", "modernizing", "migrating", "issue rfp",
	}
}

// TableWatcher holds the two hot-reloadable static tables and watches
// their backing files for changes (SPEC_FULL.md §6: "hot-reload of the
// two versioned static tables").
type TableWatcher struct {
	mu            sync.RWMutex
	sourceTypes   map[string]SourceTypeEntry
	keywords      []string
	watcher       *fsnotify.Watcher
}

// NewTableWatcher loads both tables from disk, falling back to the
// spec defaults when a path is empty, and starts watching for changes.
func NewTableWatcher(sourceTypePath, keywordPath string) (*TableWatcher, error) {
	tw := &TableWatcher{
		sourceTypes: DefaultSourceTypeTable(),
		keywords:    DefaultKeywordTable(),
	}

	if sourceTypePath != "" {
		if err := tw.loadSourceTypes(sourceTypePath); err != nil {
			return nil, err
		}
	}
	if keywordPath != "" {
		if err := tw.loadKeywords(keywordPath); err != nil {
			return nil, err
		}
	}

	if sourceTypePath == "" && keywordPath == "" {
		return tw, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to start config watcher: %w", err)
	}
	tw.watcher = w
	for _, p := range []string{sourceTypePath, keywordPath} {
		if p != "" {
			if err := w.Add(p); err != nil {
				return nil, fmt.Errorf("failed to watch %s: %w", p, err)
			}
		}
	}

	go tw.watchLoop(sourceTypePath, keywordPath)
	return tw, nil
}

func (tw *TableWatcher) watchLoop(sourceTypePath, keywordPath string) {
	for event := range tw.watcher.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}
		switch event.Name {
		case sourceTypePath:
			_ = tw.loadSourceTypes(sourceTypePath)
		case keywordPath:
			_ = tw.loadKeywords(keywordPath)
		}
	}
}

func (tw *TableWatcher) loadSourceTypes(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read source type table: %w", err)
	}
	var table map[string]SourceTypeEntry
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return fmt.Errorf("failed to parse source type table: %w", err)
	}
	tw.mu.Lock()
	tw.sourceTypes = table
	tw.mu.Unlock()
	return nil
}

func (tw *TableWatcher) loadKeywords(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read keyword table: %w", err)
	}
	var keywords []string
	if err := yaml.Unmarshal(raw, &keywords); err != nil {
		return fmt.Errorf("failed to parse keyword table: %w", err)
	}
	tw.mu.Lock()
	tw.keywords = keywords
	tw.mu.Unlock()
	return nil
}

// SourceTypes returns a snapshot of the current source-type table.
func (tw *TableWatcher) SourceTypes() map[string]SourceTypeEntry {
	tw.mu.RLock()
	defer tw.mu.RUnlock()
	out := make(map[string]SourceTypeEntry, len(tw.sourceTypes))
	for k, v := range tw.sourceTypes {
		out[k] = v
	}
	return out
}

// Keywords returns a snapshot of the current future-action keyword set.
func (tw *TableWatcher) Keywords() []string {
	tw.mu.RLock()
	defer tw.mu.RUnlock()
	out := make([]string, len(tw.keywords))
	copy(out, tw.keywords)
	return out
}

// Close stops the underlying filesystem watcher, if any.
func (tw *TableWatcher) Close() error {
	if tw.watcher == nil {
		return nil
	}
	return tw.watcher.Close()
}
