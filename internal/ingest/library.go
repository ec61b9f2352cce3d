package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/grantaxiom/internal/model"
)

// Library is the on-disk reference library format
type Library struct {
	References []model.Reference `yaml:"references"`
}

// LoadLibrary reads a YAML reference library. A missing file is an empty
// library.
func LoadLibrary(path string) ([]model.Reference, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []model.Reference{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}

	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parse library %s: %w", path, err)
	}

	seen := make(map[string]bool, len(lib.References))
	for idx, ref := range lib.References {
		if ref.ID == "" {
			return nil, fmt.Errorf("parse library %s: reference %d has no id", path, idx+1)
		}
		if seen[ref.ID] {
			return nil, fmt.Errorf("parse library %s: duplicate reference id %q", path, ref.ID)
		}
		seen[ref.ID] = true
	}

	if lib.References == nil {
		lib.References = []model.Reference{}
	}
	return lib.References, nil
}

// SaveLibrary writes refs as a YAML reference library, replacing the file
// atomically
func SaveLibrary(path string, refs []model.Reference) error {
	if refs == nil {
		refs = []model.Reference{}
	}
	data, err := yaml.Marshal(Library{References: refs})
	if err != nil {
		return fmt.Errorf("marshal library: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".library-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write library: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close library: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace library: %w", err)
	}
	return nil
}

// RemoveByID returns refs without the reference whose ID is id, and whether
// it was present
func RemoveByID(refs []model.Reference, id string) ([]model.Reference, bool) {
	out := make([]model.Reference, 0, len(refs))
	found := false
	for _, r := range refs {
		if r.ID == id {
			found = true
			continue
		}
		out = append(out, r)
	}
	return out, found
}
