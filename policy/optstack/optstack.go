// Package optstack implements the option stack (component C4): a
// five-level layered lookup — None < Default < Global < Role < Task —
// over the policy document's OptionsBlock values. It mirrors the
// teacher's persistent-vs-local cobra flag layering (a subcommand flag
// always wins over its parent's persistent flag unless the subcommand
// leaves it unset), generalized to five levels instead of two and to
// config-declared values instead of CLI flags.
package optstack

import (
	"github.com/LeChatP/RootAsRole-sub001/policy"
)

// Level identifies where in the stack an option value was declared.
type Level int

const (
	LevelNone Level = iota
	LevelDefault
	LevelGlobal
	LevelRole
	LevelTask
)

func (l Level) String() string {
	switch l {
	case LevelDefault:
		return "default"
	case LevelGlobal:
		return "global"
	case LevelRole:
		return "role"
	case LevelTask:
		return "task"
	default:
		return "none"
	}
}

// Stack holds the OptionsBlock declared at each level, outermost
// first. A nil entry means that level declares nothing.
type Stack struct {
	Default *policy.OptionsBlock
	Global  *policy.OptionsBlock
	Role    *policy.OptionsBlock
	Task    *policy.OptionsBlock
}

// New builds a Stack from the global options, an optional role's
// options, and an optional task's options (§4.4: "built top-down").
func New(defaults, global, role, task *policy.OptionsBlock) *Stack {
	return &Stack{Default: defaults, Global: global, Role: role, Task: task}
}

// levels returns the four option blocks from innermost to outermost,
// pairing each with its Level tag.
func (s *Stack) levels() []struct {
	Level Level
	Block *policy.OptionsBlock
} {
	return []struct {
		Level Level
		Block *policy.OptionsBlock
	}{
		{LevelTask, s.Task},
		{LevelRole, s.Role},
		{LevelGlobal, s.Global},
		{LevelDefault, s.Default},
	}
}

// Resolved pairs a value with the level it was found at, for
// diagnostics (§4.4, and surfaced via `sr --info`).
type Resolved[T any] struct {
	Value T
	Level Level
	Found bool
}

// isInherit reports whether a behavior-kind value is the explicit
// "inherit" sentinel that defers lookup to the next outer level
// (§4.4: env_behavior, path_behavior, root, bounding, authentication).
func isInherit(v string) bool { return v == "inherit" }

// Path resolves the `path` option: plain override, no inherit sentinel.
func (s *Stack) Path() Resolved[string] {
	for _, l := range s.levels() {
		if l.Block != nil && l.Block.Path != nil {
			return Resolved[string]{Value: *l.Block.Path, Level: l.Level, Found: true}
		}
	}
	return Resolved[string]{}
}

// EnvBehavior resolves `env_behavior`, skipping levels that declare
// the `inherit` sentinel.
func (s *Stack) EnvBehavior() Resolved[policy.EnvBehavior] {
	for _, l := range s.levels() {
		if l.Block == nil || l.Block.EnvBehavior == "" || isInherit(string(l.Block.EnvBehavior)) {
			continue
		}
		return Resolved[policy.EnvBehavior]{Value: l.Block.EnvBehavior, Level: l.Level, Found: true}
	}
	return Resolved[policy.EnvBehavior]{}
}

// PathBehavior resolves `path_behavior`.
func (s *Stack) PathBehavior() Resolved[policy.PathBehavior] {
	for _, l := range s.levels() {
		if l.Block == nil || l.Block.PathBehavior == "" || isInherit(string(l.Block.PathBehavior)) {
			continue
		}
		return Resolved[policy.PathBehavior]{Value: l.Block.PathBehavior, Level: l.Level, Found: true}
	}
	return Resolved[policy.PathBehavior]{}
}

// Root resolves `root`.
func (s *Stack) Root() Resolved[policy.RootBehavior] {
	for _, l := range s.levels() {
		if l.Block == nil || l.Block.Root == "" || isInherit(string(l.Block.Root)) {
			continue
		}
		return Resolved[policy.RootBehavior]{Value: l.Block.Root, Level: l.Level, Found: true}
	}
	return Resolved[policy.RootBehavior]{}
}

// Bounding resolves `bounding`.
func (s *Stack) Bounding() Resolved[policy.BoundingBehavior] {
	for _, l := range s.levels() {
		if l.Block == nil || l.Block.Bounding == "" || isInherit(string(l.Block.Bounding)) {
			continue
		}
		return Resolved[policy.BoundingBehavior]{Value: l.Block.Bounding, Level: l.Level, Found: true}
	}
	return Resolved[policy.BoundingBehavior]{}
}

// Authentication resolves `authentication`.
func (s *Stack) Authentication() Resolved[policy.AuthBehavior] {
	for _, l := range s.levels() {
		if l.Block == nil || l.Block.Authentication == "" || isInherit(string(l.Block.Authentication)) {
			continue
		}
		return Resolved[policy.AuthBehavior]{Value: l.Block.Authentication, Level: l.Level, Found: true}
	}
	return Resolved[policy.AuthBehavior]{}
}

// WildcardDenied resolves `wildcard_denied`.
func (s *Stack) WildcardDenied() Resolved[string] {
	for _, l := range s.levels() {
		if l.Block != nil && l.Block.WildcardDenied != "" {
			return Resolved[string]{Value: l.Block.WildcardDenied, Level: l.Level, Found: true}
		}
	}
	return Resolved[string]{}
}

// EnvWhitelist resolves `env_whitelist`.
func (s *Stack) EnvWhitelist() Resolved[[]string] {
	for _, l := range s.levels() {
		if l.Block != nil && l.Block.EnvWhitelist != nil {
			return Resolved[[]string]{Value: l.Block.EnvWhitelist, Level: l.Level, Found: true}
		}
	}
	return Resolved[[]string]{}
}

// EnvBlacklist resolves `env_blacklist`.
func (s *Stack) EnvBlacklist() Resolved[[]string] {
	for _, l := range s.levels() {
		if l.Block != nil && l.Block.EnvBlacklist != nil {
			return Resolved[[]string]{Value: l.Block.EnvBlacklist, Level: l.Level, Found: true}
		}
	}
	return Resolved[[]string]{}
}

// EnvChecklist resolves `env_checklist`.
func (s *Stack) EnvChecklist() Resolved[[]string] {
	for _, l := range s.levels() {
		if l.Block != nil && l.Block.EnvChecklist != nil {
			return Resolved[[]string]{Value: l.Block.EnvChecklist, Level: l.Level, Found: true}
		}
	}
	return Resolved[[]string]{}
}

// EnvSet resolves `env_set`.
func (s *Stack) EnvSet() Resolved[map[string]string] {
	for _, l := range s.levels() {
		if l.Block != nil && l.Block.EnvSet != nil {
			return Resolved[map[string]string]{Value: l.Block.EnvSet, Level: l.Level, Found: true}
		}
	}
	return Resolved[map[string]string]{}
}

// Timeout resolves `timeout` by whole struct, never field-by-field
// (§4.4 explicit exception to the usual per-kind lookup).
func (s *Stack) Timeout() Resolved[*policy.Timeout] {
	for _, l := range s.levels() {
		if l.Block != nil && l.Block.Timeout != nil {
			return Resolved[*policy.Timeout]{Value: l.Block.Timeout, Level: l.Level, Found: true}
		}
	}
	return Resolved[*policy.Timeout]{}
}
