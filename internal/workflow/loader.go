// Package workflow discovers and loads workflow definitions from YAML
// files on disk.
package workflow

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raps-stack/rapsflow/internal/errors"
	"github.com/raps-stack/rapsflow/internal/raps"
	"github.com/raps-stack/rapsflow/internal/types"
)

// Loader discovers workflow definitions under a directory. Files ending in
// .yaml or .yml are candidates; subdirectories are searched one level deep
// so definitions can be grouped by category.
type Loader struct {
	// Dir is the workflows directory.
	Dir string
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// Discover loads every definition under the loader's directory, sorted by
// workflow ID. A file that fails to parse or validate fails the whole
// discovery; definitions are trusted inputs, not data to tolerate.
func (l *Loader) Discover() ([]*types.WorkflowDefinition, error) {
	paths, err := l.candidateFiles()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(paths))
	defs := make([]*types.WorkflowDefinition, 0, len(paths))
	for _, path := range paths {
		def, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[def.Metadata.ID]; ok {
			return nil, errors.DefDuplicateWorkflow(def.Metadata.ID, prev, path)
		}
		seen[def.Metadata.ID] = path
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Metadata.ID < defs[j].Metadata.ID
	})
	return defs, nil
}

// Load returns the definition with the given workflow ID.
func (l *Loader) Load(id string) (*types.WorkflowDefinition, error) {
	defs, err := l.Discover()
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if def.Metadata.ID == id {
			return def, nil
		}
	}
	return nil, errors.DefNotFound(id)
}

// LoadFile parses and validates one definition file.
func LoadFile(path string) (*types.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.DefParseError(path, err)
	}

	var def types.WorkflowDefinition
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, errors.DefParseError(path, err)
	}
	def.Path = path

	if err := def.Validate(); err != nil {
		return nil, errors.DefInvalid(def.Metadata.ID, err)
	}
	if err := validateCommands(&def); err != nil {
		return nil, errors.DefInvalid(def.Metadata.ID, err)
	}
	return &def, nil
}

// validateCommands checks every step and cleanup command against the
// closed command registry so unknown commands fail at load time, not
// mid-run.
func validateCommands(def *types.WorkflowDefinition) error {
	for _, step := range def.Steps {
		if _, err := raps.Lookup(step.Command); err != nil {
			return err
		}
	}
	for _, cd := range def.Cleanup {
		if _, err := raps.Lookup(cd.Command); err != nil {
			return err
		}
	}
	return nil
}

// candidateFiles lists definition files: the directory itself plus one
// level of subdirectories, sorted for stable ordering.
func (l *Loader) candidateFiles() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, errors.DefParseError(l.Dir, err)
	}

	var paths []string
	for _, entry := range entries {
		full := filepath.Join(l.Dir, entry.Name())
		if entry.IsDir() {
			sub, err := os.ReadDir(full)
			if err != nil {
				continue
			}
			for _, se := range sub {
				if !se.IsDir() && isDefinitionFile(se.Name()) {
					paths = append(paths, filepath.Join(full, se.Name()))
				}
			}
			continue
		}
		if isDefinitionFile(entry.Name()) {
			paths = append(paths, full)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func isDefinitionFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
