package editor

import (
	"fmt"

	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
	"github.com/LeChatP/RootAsRole-sub001/policy"
)

// ScopeLevel names an editable level of the option stack. LevelDefault
// is deliberately absent: it is the process-wide hardcoded default
// passed to optstack.New by the caller, not part of the policy
// document, so it has nothing for set_option to mutate.
type ScopeLevel int

const (
	ScopeGlobal ScopeLevel = iota
	ScopeRole
	ScopeTask
)

// Scope identifies where in the document a set_option call applies.
type Scope struct {
	Level ScopeLevel
	Role  string
	Task  policy.TaskID
}

// resolve returns the OptionsBlock set_option should mutate, creating
// it in place if the scope declares nothing yet.
func (s Scope) resolve(cfg *policy.Config) (**policy.OptionsBlock, error) {
	switch s.Level {
	case ScopeGlobal:
		return &cfg.Options, nil
	case ScopeRole:
		role := cfg.RoleByName(s.Role)
		if role == nil {
			return nil, rarerr.Wrap(rarerr.ErrRoleNotFound, rarerr.ConfigurationError, "editor.set_option")
		}
		return &role.Options, nil
	case ScopeTask:
		role := cfg.RoleByName(s.Role)
		if role == nil {
			return nil, rarerr.Wrap(rarerr.ErrRoleNotFound, rarerr.ConfigurationError, "editor.set_option")
		}
		task := taskByID(role, s.Task)
		if task == nil {
			return nil, rarerr.Wrap(rarerr.ErrTaskNotFound, rarerr.ConfigurationError, "editor.set_option")
		}
		return &task.Options, nil
	default:
		return nil, rarerr.New(rarerr.InvalidArguments, "editor.set_option", fmt.Sprintf("unknown scope level %d", s.Level))
	}
}

func taskByID(role *policy.Role, id policy.TaskID) *policy.Task {
	for _, t := range role.Tasks {
		if taskMatchesID(t, id) {
			return t
		}
	}
	return nil
}

func taskMatchesID(t *policy.Task, id policy.TaskID) bool {
	if id.Positional {
		return t.ID.Positional && t.ID.Index == id.Index
	}
	return !t.ID.Positional && t.ID.Name == id.Name
}

// applyOption sets key to value on the OptionsBlock at *block,
// allocating the block if it was nil. Recognized keys are assigned to
// their typed field; an unrecognized key is preserved verbatim in
// Extra, the same forward-compatibility path Link relies on for
// unknown top-level document keys (§4.3).
func applyOption(block **policy.OptionsBlock, key string, value any) error {
	if *block == nil {
		*block = &policy.OptionsBlock{}
	}
	ob := *block

	switch key {
	case "path":
		s, ok := value.(string)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.Path = &s
	case "env_whitelist":
		v, ok := toStringSlice(value)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.EnvWhitelist = v
	case "env_blacklist":
		v, ok := toStringSlice(value)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.EnvBlacklist = v
	case "env_checklist":
		v, ok := toStringSlice(value)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.EnvChecklist = v
	case "env_set":
		v, ok := value.(map[string]string)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.EnvSet = v
	case "env_behavior":
		v, ok := value.(string)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.EnvBehavior = policy.EnvBehavior(v)
	case "path_behavior":
		v, ok := value.(string)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.PathBehavior = policy.PathBehavior(v)
	case "root":
		v, ok := value.(string)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.Root = policy.RootBehavior(v)
	case "bounding":
		v, ok := value.(string)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.Bounding = policy.BoundingBehavior(v)
	case "authentication":
		v, ok := value.(string)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.Authentication = policy.AuthBehavior(v)
	case "wildcard_denied":
		v, ok := value.(string)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.WildcardDenied = v
	case "timeout":
		v, ok := value.(policy.Timeout)
		if !ok {
			return invalidOptionValue(key, value)
		}
		ob.Timeout = &v
	default:
		if ob.Extra == nil {
			ob.Extra = map[string]any{}
		}
		ob.Extra[key] = value
	}
	return nil
}

func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func invalidOptionValue(key string, value any) error {
	return rarerr.New(rarerr.InvalidArguments, "editor.set_option", fmt.Sprintf("invalid value %v for option %q", value, key))
}
