// internal/form/seed.go
//
// FormPlant – Forms subsystem: YAML definition seeding.
//
// Context
//   Deployments can keep form definitions as YAML files under a forms/
//   directory and have them upserted into the store at boot.  Seeding is
//   additive: files describe the desired form, the store decides insert
//   versus update by title.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Upserter is the narrow store surface seeding needs.
type Upserter interface {
	UpsertForm(ctx context.Context, fm *Form) error
}

// LoadFile parses one YAML form definition.  The document is decoded
// generically and re-read through the JSON model so the legacy value
// aliases (boolean save modes and the like) behave exactly as they do for
// stored forms.
func LoadFile(path string) (*Form, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("form: read %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("form: parse %s: %w", path, err)
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("form: convert %s: %w", path, err)
	}

	var fm Form
	if err := json.Unmarshal(buf, &fm); err != nil {
		return nil, fmt.Errorf("form: decode %s: %w", path, err)
	}
	if fm.Status == "" {
		fm.Status = StatusPublished
	}
	fm.Normalize()
	if err := fm.Validate(); err != nil {
		return nil, fmt.Errorf("form: %s: %w", path, err)
	}
	return &fm, nil
}

// SeedDir loads every *.yaml and *.yml file under dir and upserts each form.
// A missing directory is not an error; a bad file aborts the seed so a
// partial deploy does not go unnoticed.
func SeedDir(ctx context.Context, dir string, store Upserter) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("form: read seed dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	for _, p := range paths {
		fm, err := LoadFile(p)
		if err != nil {
			return err
		}
		if err := store.UpsertForm(ctx, fm); err != nil {
			return fmt.Errorf("form: seed %s: %w", p, err)
		}
		zap.S().Infow("form seeded", "file", filepath.Base(p), "title", fm.Title, "fields", len(fm.Fields))
	}
	return nil
}
