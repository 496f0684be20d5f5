// Package actions defines the media kit's action framework. An action is
// a named operation that consumes a workspace item and produces a derived
// item: transcribe a video, break a transcript into paragraphs, render a
// PDF. Actions declare a precondition over their input, a JSON schema for
// their parameters, and whether they are exposed as MCP tools. Concrete
// actions register themselves at init time; pkg/kit pulls them all in via
// blank imports.
package actions

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jlevy/kash-media/pkg/cache"
	"github.com/jlevy/kash-media/pkg/llm"
	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/media"
	"github.com/jlevy/kash-media/pkg/telemetry"
	"github.com/jlevy/kash-media/pkg/types/item"
	"github.com/jlevy/kash-media/pkg/workspace"
)

var (
	// ErrPrecondition indicates an action was invoked on an item that does
	// not satisfy its precondition.
	ErrPrecondition = errors.New("action precondition not satisfied")
	// ErrInvalidInput indicates an action was given unusable parameters or
	// an item it cannot operate on.
	ErrInvalidInput = errors.New("invalid action input")
)

// Runtime carries the shared services actions draw on. The CLI and the
// MCP server assemble one Runtime per invocation; individual actions use
// only the fields they need, and fields an action does not touch may be
// left nil.
type Runtime struct {
	Workspace   *workspace.Workspace
	Cache       *cache.Cache
	Media       *media.Registry
	Provider    llm.Provider
	Transcriber llm.Transcriber
}

// Action is a single operation over workspace items.
type Action interface {
	// Name is the action's registered name, e.g. "transcribe".
	Name() string
	// Description explains what the action does, shown in CLI help and
	// MCP tool listings.
	Description() string
	// GenerateSchema returns the JSON schema for the action's params.
	GenerateSchema() *jsonschema.Schema
	// Precondition returns the predicate the input item must satisfy,
	// or nil when any item is acceptable.
	Precondition() *Precondition
	// MCPTool reports whether the action is exposed over MCP.
	MCPTool() bool
	// Execute runs the action. params is a JSON object matching
	// GenerateSchema, or empty for defaults. Returning the input item
	// unchanged is allowed and means the action had nothing to do.
	Execute(ctx context.Context, rt *Runtime, input *item.Item, params string) (*item.Item, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Action)
)

// Register makes an action available by name. It panics if the name is
// empty or already registered, so duplicate registrations surface at
// startup rather than shadowing each other silently.
func Register(action Action) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name := action.Name()
	if name == "" {
		panic("actions: Register called with empty action name")
	}
	if _, dup := registry[name]; dup {
		panic("actions: Register called twice for action " + name)
	}
	registry[name] = action
}

// Get returns the registered action with the given name.
func Get(name string) (Action, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	action, ok := registry[name]
	return action, ok
}

// Names returns all registered action names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered actions, sorted by name.
func All() []Action {
	registryMu.RLock()
	defer registryMu.RUnlock()
	all := make([]Action, 0, len(registry))
	for _, action := range registry {
		all = append(all, action)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}

// MCPActions returns the registered actions exposed as MCP tools, sorted
// by name.
func MCPActions() []Action {
	var mcp []Action
	for _, action := range All() {
		if action.MCPTool() {
			mcp = append(mcp, action)
		}
	}
	return mcp
}

// RunAction resolves target (a store path or URL) in the runtime's
// workspace and runs the named action on it. The result item is saved to
// the workspace with its store path set.
func RunAction(ctx context.Context, rt *Runtime, name, target, params string) (*item.Item, error) {
	action, ok := Get(name)
	if !ok {
		return nil, errors.Errorf("unknown action %q (have: %s)", name, strings.Join(Names(), ", "))
	}
	input, err := rt.Workspace.Resolve(target)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving action target %q", target)
	}
	return Run(ctx, rt, action, input, params)
}

// Run checks the action's precondition against input, executes it, and
// saves the derived item. An action that returns its input unchanged (a
// no-op) skips the save.
func Run(ctx context.Context, rt *Runtime, action Action, input *item.Item, params string) (*item.Item, error) {
	var result *item.Item
	err := telemetry.WithSpan(ctx, "actions.run."+action.Name(), func(ctx context.Context) error {
		if pre := action.Precondition(); pre != nil {
			if failed := pre.Explain(input); failed != "" {
				return errors.Wrapf(ErrPrecondition, "action %s requires %s, not met by %q",
					action.Name(), failed, input.AbbrevTitle())
			}
		}

		log := logger.G(ctx).WithFields(logrus.Fields{
			"action": action.Name(),
			"item":   input.AbbrevTitle(),
		})
		log.Info("running action")

		output, err := action.Execute(ctx, rt, input, params)
		if err != nil {
			return errors.Wrapf(err, "action %s", action.Name())
		}
		if output == nil || output == input {
			result = input
			return nil
		}
		if _, err := rt.Workspace.Save(output); err != nil {
			return errors.Wrapf(err, "saving result of action %s", action.Name())
		}
		log.WithField("store_path", output.StorePath).Info("action complete")
		result = output
		return nil
	}, attribute.String("action", action.Name()))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateSchema builds the JSON schema for an action's params struct.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// UnmarshalParams decodes an action's params JSON into v. Empty params
// leave v at its zero value so defaults apply.
func UnmarshalParams(params string, v any) error {
	if strings.TrimSpace(params) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(params), v); err != nil {
		return errors.Wrapf(ErrInvalidInput, "malformed params %q: %v", params, err)
	}
	return nil
}
