// Package raps maps opaque command specs onto the external raps CLI and
// invokes it as a subprocess.
package raps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/raps-stack/rapsflow/internal/errors"
	"github.com/raps-stack/rapsflow/internal/types"
)

// ResourceRule declares the resource a command creates on success. The
// identifier is taken from the named resolved parameter; domain semantics
// stay opaque to the engine.
type ResourceRule struct {
	Kind            types.ResourceKind
	IdentifierParam string
}

// Entry describes one supported (type, action) command.
type Entry struct {
	// Args builds the CLI arguments from resolved parameters.
	Args func(p Params) ([]string, error)

	// Creates is non-nil for commands known to create a resource.
	Creates *ResourceRule

	// CleansUp names the resource kind this command tears down, if any.
	// Cleanup definitions with a non-empty kind run once per tracked
	// resource of that kind; others run once globally.
	CleansUp types.ResourceKind
}

// Params is a resolved parameter map with lookup helpers.
type Params map[string]string

func (p Params) get(key string) string {
	return p[key]
}

func (p Params) need(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == "" {
		return "", fmt.Errorf("missing required param %q", key)
	}
	return v, nil
}

// enabled reports whether a boolean-ish param is set.
func (p Params) enabled(key string) bool {
	return p[key] == "true"
}

// registry is the closed set of supported commands. Anything else is an
// unknown-command error rather than stringly-typed passthrough.
var registry = map[string]Entry{
	"auth/login":   {Args: plainArgs("auth", "login")},
	"auth/logout":  {Args: plainArgs("auth", "logout")},
	"auth/status":  {Args: plainArgs("auth", "status")},
	"auth/refresh": {Args: plainArgs("auth", "refresh")},

	"bucket/create": {
		Args: func(p Params) ([]string, error) {
			name, err := p.need("bucket_name")
			if err != nil {
				return nil, err
			}
			args := []string{"bucket", "create", "--key", name}
			if policy := p.get("retention_policy"); policy != "" {
				args = append(args, "--policy", policy)
			}
			if region := p.get("region"); region != "" {
				args = append(args, "--region", region)
			}
			return args, nil
		},
		Creates: &ResourceRule{Kind: types.ResourceBucket, IdentifierParam: "bucket_name"},
	},
	"bucket/delete": {
		Args: func(p Params) ([]string, error) {
			name, err := p.need("bucket_name")
			if err != nil {
				return nil, err
			}
			args := []string{"bucket", "delete", "--key", name}
			if p.enabled("force") {
				args = append(args, "--yes")
			}
			return args, nil
		},
		CleansUp: types.ResourceBucket,
	},
	"bucket/list": {Args: plainArgs("bucket", "list")},
	"bucket/details": {
		Args: func(p Params) ([]string, error) {
			name, err := p.need("bucket_name")
			if err != nil {
				return nil, err
			}
			return []string{"bucket", "details", "--key", name}, nil
		},
	},

	"object/upload": {
		Args: func(p Params) ([]string, error) {
			bucket, err := p.need("bucket_name")
			if err != nil {
				return nil, err
			}
			args := []string{"object", "upload", bucket}
			if file := p.get("file_path"); file != "" {
				args = append(args, file)
			}
			if key := p.get("object_key"); key != "" {
				args = append(args, "--key", key)
			}
			if p.enabled("batch") {
				args = append(args, "--batch")
			}
			return args, nil
		},
		Creates: &ResourceRule{Kind: types.ResourceObject, IdentifierParam: "object_key"},
	},
	"object/download": {
		Args: func(p Params) ([]string, error) {
			bucket, err := p.need("bucket_name")
			if err != nil {
				return nil, err
			}
			args := []string{"object", "download", bucket}
			if key := p.get("object_key"); key != "" {
				args = append(args, key)
			}
			if file := p.get("file_path"); file != "" {
				args = append(args, "--output", file)
			}
			return args, nil
		},
	},
	"object/delete": {
		Args: func(p Params) ([]string, error) {
			bucket, err := p.need("bucket_name")
			if err != nil {
				return nil, err
			}
			args := []string{"object", "delete", bucket}
			if key := p.get("object_key"); key != "" {
				args = append(args, key)
			}
			return args, nil
		},
		CleansUp: types.ResourceObject,
	},
	"object/list": {
		Args: func(p Params) ([]string, error) {
			bucket, err := p.need("bucket_name")
			if err != nil {
				return nil, err
			}
			return []string{"object", "list", bucket}, nil
		},
	},
	"object/signed-url": {
		Args: func(p Params) ([]string, error) {
			bucket, err := p.need("bucket_name")
			if err != nil {
				return nil, err
			}
			args := []string{"object", "signed-url", bucket}
			if key := p.get("object_key"); key != "" {
				args = append(args, key)
			}
			if exp := p.get("expires_in"); exp != "" {
				args = append(args, "--expires-in", exp)
			}
			return args, nil
		},
	},

	"translate/start": {
		Args: func(p Params) ([]string, error) {
			urn, err := p.need("urn")
			if err != nil {
				return nil, err
			}
			args := []string{"translate", "start", urn}
			if format := p.get("format"); format != "" {
				args = append(args, "--format", format)
			}
			if p.enabled("wait") {
				args = append(args, "--wait")
			}
			return args, nil
		},
		Creates: &ResourceRule{Kind: types.ResourceTranslation, IdentifierParam: "urn"},
	},
	"translate/status": {
		Args: func(p Params) ([]string, error) {
			urn, err := p.need("urn")
			if err != nil {
				return nil, err
			}
			return []string{"translate", "status", urn}, nil
		},
	},
	"translate/manifest": {
		Args: func(p Params) ([]string, error) {
			urn, err := p.need("urn")
			if err != nil {
				return nil, err
			}
			return []string{"translate", "manifest", urn}, nil
		},
	},

	"data-management/folder-create": {
		Args: func(p Params) ([]string, error) {
			project, err := p.need("project_id")
			if err != nil {
				return nil, err
			}
			name, err := p.need("folder_name")
			if err != nil {
				return nil, err
			}
			return []string{"folder", "create", project, name}, nil
		},
		Creates: &ResourceRule{Kind: types.ResourceFolder, IdentifierParam: "folder_name"},
	},
	"data-management/hub-list": {Args: plainArgs("hub", "list")},
	"data-management/project-list": {
		Args: func(p Params) ([]string, error) {
			args := []string{"project", "list"}
			if hub := p.get("hub_id"); hub != "" {
				args = append(args, hub)
			}
			return args, nil
		},
	},

	"design-automation/workitem-run": {
		Args: func(p Params) ([]string, error) {
			activity, err := p.need("activity_id")
			if err != nil {
				return nil, err
			}
			args := []string{"da", "workitem", "run", activity}
			if input := p.get("input_file"); input != "" {
				args = append(args, "--input", input)
			}
			if output := p.get("output_file"); output != "" {
				args = append(args, "--output", output)
			}
			return args, nil
		},
		Creates: &ResourceRule{Kind: types.ResourceWorkItem, IdentifierParam: "activity_id"},
	},
	"design-automation/workitem-get": {
		Args: func(p Params) ([]string, error) {
			id, err := p.need("work_item_id")
			if err != nil {
				return nil, err
			}
			return []string{"da", "workitem", "get", id}, nil
		},
	},

	// Escape hatch for commands outside the closed set. Arguments are
	// whitespace-split; no resource tracking.
	"custom/run": {
		Args: func(p Params) ([]string, error) {
			raw, err := p.need("args")
			if err != nil {
				return nil, err
			}
			return strings.Fields(raw), nil
		},
	},
}

func plainArgs(args ...string) func(Params) ([]string, error) {
	return func(Params) ([]string, error) {
		return args, nil
	}
}

// Lookup returns the registry entry for a command spec, or an
// unknown-command error for anything outside the closed set.
func Lookup(spec types.CommandSpec) (Entry, error) {
	entry, ok := registry[spec.Key()]
	if !ok {
		return Entry{}, errors.UnknownCommand(spec.Type, spec.Action)
	}
	return entry, nil
}

// BuildArgs maps a command spec with resolved params to raps CLI arguments.
func BuildArgs(spec types.CommandSpec, resolved map[string]string) ([]string, error) {
	entry, err := Lookup(spec)
	if err != nil {
		return nil, err
	}
	args, err := entry.Args(Params(resolved))
	if err != nil {
		return nil, errors.Wrapf(errors.CodeDefInvalid, err, "building args for %s", spec.Key())
	}
	return args, nil
}

// KnownCommands returns the sorted registry keys, for validation messages.
func KnownCommands() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
