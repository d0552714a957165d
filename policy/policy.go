// Package policy defines the in-memory policy document (component C3):
// a typed tree of Config -> Role -> Task -> {Credentials, Commands,
// Options}. Child-to-parent references are deliberately plain,
// non-owning pointers (documented here rather than expressed with
// Go's weak package, since the tree is read-mostly and fully owned by
// a single Config at a time) — Link rewires them after every
// load/clone so nothing stale survives a structural edit.
package policy

import (
	"github.com/Masterminds/semver/v3"

	"github.com/LeChatP/RootAsRole-sub001/cap"
	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
)

// StorageMethod selects the on-disk encoding of the policy document.
type StorageMethod string

const (
	StorageJSON StorageMethod = "json"
	StorageCBOR StorageMethod = "cbor"
)

// StorageDescriptor configures where and how the document is persisted.
// Not part of the stable CBOR letter-key table (§6), so its own fields
// keep their full names under both encodings.
type StorageDescriptor struct {
	Method    StorageMethod `json:"method" cbor:"method"`
	Immutable bool          `json:"immutable,omitempty" cbor:"immutable,omitempty"`
	Path      string        `json:"path,omitempty" cbor:"path,omitempty"`
}

// TimestampType scopes a cookie to the caller's TTY, parent PID, or UID.
type TimestampType string

const (
	TimestampTTY  TimestampType = "tty"
	TimestampPPID TimestampType = "ppid"
	TimestampUID  TimestampType = "uid"
)

// TimestampDescriptor is the default cookie policy (§6 "timestamp").
type TimestampDescriptor struct {
	Type     TimestampType `json:"type" cbor:"type"`
	Duration string        `json:"duration" cbor:"duration"`
	MaxUsage uint32        `json:"max_usage,omitempty" cbor:"max_usage,omitempty"`
}

// Config is the root of a policy document. Under CBOR, Config, Role
// and Task are encoded through the json-tagged alias structs in
// codec.go (see cbor.go), so their keys are the full JSON names
// ("options", "roles", "name", "tasks", ...) and the one-letter cbor
// tags on these three types' fields are not used. Credentials,
// IDSelector, CapabilitiesSet and Commands are encoded with their
// one-letter cbor tags.
type Config struct {
	Version   string               `json:"version" cbor:"version"`
	Storage   StorageDescriptor    `json:"storage" cbor:"storage"`
	Timestamp *TimestampDescriptor `json:"timestamp,omitempty" cbor:"timestamp,omitempty"`
	Options   *OptionsBlock        `json:"options,omitempty" cbor:"o,omitempty"`
	Roles     []*Role              `json:"roles" cbor:"r"`

	// Extra preserves unrecognized top-level keys across a
	// parse-then-serialize round trip (§4.3 forward-compatibility).
	Extra map[string]any `json:"-" cbor:"-"`
}

// ParsedVersion parses Config.Version as semver, per the invariant
// that it must always be a valid version string.
func (c *Config) ParsedVersion() (*semver.Version, error) {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return nil, rarerr.Wrap(err, rarerr.ConfigurationError, "parse_version")
	}
	return v, nil
}

// RoleByName returns the role with the given name, or nil.
func (c *Config) RoleByName(name string) *Role {
	for _, r := range c.Roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Role groups actors, tasks, and options under one name.
type Role struct {
	Name    string        `json:"name" cbor:"n"`
	Actors  []ActorEntry  `json:"actors,omitempty" cbor:"a,omitempty"`
	Tasks   []*Task       `json:"tasks,omitempty" cbor:"t,omitempty"`
	Options *OptionsBlock `json:"options,omitempty" cbor:"o,omitempty"`
	Parents []string      `json:"parents,omitempty" cbor:"parents,omitempty"`
	SSD     []string      `json:"ssd,omitempty" cbor:"ssd,omitempty"`

	Extra map[string]any `json:"-" cbor:"-"`

	// Config is a non-owning back-reference set by Link.
	Config *Config `json:"-" cbor:"-"`
}

// TaskByName returns the task with the given name within this role, or
// nil. Positional (unnamed) tasks are not matched by this lookup.
func (r *Role) TaskByName(name string) *Task {
	for _, t := range r.Tasks {
		if t.ID.Name == name && !t.ID.Positional {
			return t
		}
	}
	return nil
}

// ActorEntry is the serialized form of an actor.Actor: either a user
// reference, a group combination, or an unrecognized raw string kept
// for forward-compatibility.
type ActorEntry struct {
	User   string   `json:"user,omitempty" cbor:"-"`
	Groups []string `json:"groups,omitempty" cbor:"-"`
	Raw    string   `json:"raw,omitempty" cbor:"-"`
}

// TaskID identifies a task: either a name or a purely positional index
// within its role (§3: "either string name or positional number").
type TaskID struct {
	Name       string
	Positional bool
	Index      int
}

// Task is a named (or positional) bundle of credentials, commands, and
// options within a role.
type Task struct {
	ID          TaskID        `json:"-" cbor:"-"`
	Purpose     string        `json:"purpose,omitempty" cbor:"p,omitempty"`
	Credentials Credentials   `json:"cred" cbor:"i"`
	Commands    Commands      `json:"commands" cbor:"c"`
	Options     *OptionsBlock `json:"options,omitempty" cbor:"o,omitempty"`

	Extra map[string]any `json:"-" cbor:"-"`

	// Role is a non-owning back-reference set by Link.
	Role *Role `json:"-" cbor:"-"`
}

// Credentials describes the target identity and capability set a task
// grants (§3 Credentials).
type Credentials struct {
	SetUID       *IDSelector      `json:"setuid,omitempty" cbor:"u,omitempty"`
	SetGID       *IDSelector      `json:"setgid,omitempty" cbor:"g,omitempty"`
	Capabilities *CapabilitiesSet `json:"capabilities,omitempty" cbor:"c,omitempty"`
}

// IDSelector lets a task enumerate which target uid/gid(s) a caller may
// pick from: a default (fallback) identity plus explicit add/sub
// adjustments, the same default/add/sub shape as Commands and
// CapabilitiesSet.
type IDSelector struct {
	Fallback *uint32  `json:"default,omitempty" cbor:"f,omitempty"`
	Add      []uint32 `json:"add,omitempty" cbor:"a,omitempty"`
	Sub      []uint32 `json:"sub,omitempty" cbor:"s,omitempty"`
}

// Choices returns the set of identities this selector allows, in
// default-then-add order with Sub removed.
func (s *IDSelector) Choices() []uint32 {
	if s == nil {
		return nil
	}
	seen := make(map[uint32]bool, len(s.Add)+1)
	sub := make(map[uint32]bool, len(s.Sub))
	for _, id := range s.Sub {
		sub[id] = true
	}
	var out []uint32
	add := func(id uint32) {
		if sub[id] || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	if s.Fallback != nil {
		add(*s.Fallback)
	}
	for _, id := range s.Add {
		add(id)
	}
	return out
}

// CapabilityDefault selects whether a CapabilitiesSet or Commands
// starts from the empty set or the full universe before add/sub are
// applied (§3 "default_behavior").
type CapabilityDefault string

const (
	DefaultNone CapabilityDefault = "none"
	DefaultAll  CapabilityDefault = "all"
)

// CapabilitiesSet is a task's capability grant: default_behavior plus
// add/sub capability-name lists. Effective() combines them against the
// cap package's universe.
type CapabilitiesSet struct {
	Default CapabilityDefault `json:"default_behavior" cbor:"d"`
	Add     []string          `json:"add,omitempty" cbor:"a,omitempty"`
	Sub     []string          `json:"sub,omitempty" cbor:"s,omitempty"`
}

// Commands is a task's command allow-list: default_behavior plus
// add/sub Command items (§3 Commands).
type Commands struct {
	Default CapabilityDefault `json:"default_behavior" cbor:"d"`
	Add     []Command         `json:"add,omitempty" cbor:"a,omitempty"`
	Sub     []Command         `json:"sub,omitempty" cbor:"s,omitempty"`
}

// Command is either a bare shell-split string or a structured spec
// dispatched to the command-matcher registry (§4.5). Structured holds
// the decoded map for non-string forms (e.g. hashed-binary); the
// cmdmatch package interprets it, policy just carries it.
type Command struct {
	Simple     string
	Structured map[string]any
}

// IsSimple reports whether this command is the plain shell-split form.
func (c Command) IsSimple() bool { return c.Structured == nil }

// Effective computes the granted capability set: (full universe if
// Default is "all", else empty) union Add, minus Sub (§3 Credentials).
// A nil receiver is the zero value for a task that declares no
// capabilities block at all, and behaves as DefaultNone with no
// add/sub entries.
func (c *CapabilitiesSet) Effective() (cap.Set, error) {
	if c == nil {
		return cap.NewSet(), nil
	}
	base := cap.NewSet()
	if c.Default == DefaultAll {
		base = cap.Universe()
	}
	add, err := cap.ParseSet(c.Add)
	if err != nil {
		return cap.Set{}, rarerr.Wrap(err, rarerr.ConfigurationError, "capabilities.add")
	}
	sub, err := cap.ParseSet(c.Sub)
	if err != nil {
		return cap.Set{}, rarerr.Wrap(err, rarerr.ConfigurationError, "capabilities.sub")
	}
	return base.Union(add).Subtract(sub), nil
}
