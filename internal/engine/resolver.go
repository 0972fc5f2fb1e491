package engine

import (
	"regexp"
	"strconv"

	"github.com/raps-stack/rapsflow/internal/errors"
	"github.com/raps-stack/rapsflow/internal/types"
)

// tokenPattern matches {name} placeholders. Names may be dotted to
// reference step outputs ({bucket-step.bucket_name}) or the per-resource
// cleanup scope ({resource.id}).
var tokenPattern = regexp.MustCompile(`\{([a-zA-Z0-9_][a-zA-Z0-9_.-]*)\}`)

// ResolveStepParams resolves every placeholder in a step's params. One
// fresh UUID is generated per step: every {uuid} occurrence within the
// step's params shares it, so a generated bucket name referenced twice in
// one step stays consistent. {timestamp} is the run start time and stable
// for the whole run. Any token without a value is an error; nothing is
// passed through unresolved.
func ResolveStepParams(ctx *ExecutionContext, stepID string, params map[string]string) (map[string]string, error) {
	var stepUUID string
	return resolveParams(ctx, stepID, params, func(name string) (string, bool) {
		if name == "uuid" {
			if stepUUID == "" {
				stepUUID = ctx.newUUID()
			}
			return stepUUID, true
		}
		return "", false
	})
}

// ResolveCleanupParams resolves a cleanup command's params in the scope of
// one tracked resource: {resource.id} is the resource's external
// identifier and {resource.kind} its kind. Run variables and step outputs
// remain visible. res may be nil for global cleanup commands.
func ResolveCleanupParams(ctx *ExecutionContext, res *types.TrackedResource, params map[string]string) (map[string]string, error) {
	stepID := ""
	if res != nil {
		stepID = res.StepID
	}
	return resolveParams(ctx, stepID, params, func(name string) (string, bool) {
		if res == nil {
			return "", false
		}
		switch name {
		case "resource.id":
			return res.Identifier, true
		case "resource.kind":
			return string(res.Kind), true
		}
		return "", false
	})
}

func resolveParams(ctx *ExecutionContext, stepID string, params map[string]string, scope func(string) (string, bool)) (map[string]string, error) {
	resolved := make(map[string]string, len(params))
	for key, raw := range params {
		var resolveErr error
		value := tokenPattern.ReplaceAllStringFunc(raw, func(token string) string {
			if resolveErr != nil {
				return token
			}
			name := token[1 : len(token)-1]
			if v, ok := scope(name); ok {
				return v
			}
			switch name {
			case "timestamp":
				return strconv.FormatInt(ctx.StartedAt.Unix(), 10)
			}
			if v, ok := ctx.lookup(name); ok {
				return v
			}
			resolveErr = errors.UnresolvedPlaceholder(name, stepID)
			return token
		})
		if resolveErr != nil {
			return nil, resolveErr
		}
		resolved[key] = value
	}
	return resolved, nil
}
