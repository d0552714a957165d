package policy

// EnvBehavior selects how the caller's environment is treated before
// the env-policy lists are applied (§3 Options, §4.8 C8).
type EnvBehavior string

const (
	EnvDelete  EnvBehavior = "delete"
	EnvKeep    EnvBehavior = "keep"
	EnvInherit EnvBehavior = "inherit"
)

// PathBehavior selects how PATH is rebuilt for the spawned process.
type PathBehavior string

const (
	PathDelete    PathBehavior = "delete"
	PathKeepSafe  PathBehavior = "keep-safe"
	PathKeepUnsafe PathBehavior = "keep-unsafe"
	PathInherit   PathBehavior = "inherit"
)

// RootBehavior controls whether the process may run as a privileged
// (uid 0) target identity.
type RootBehavior string

const (
	RootPrivileged RootBehavior = "privileged"
	RootUser       RootBehavior = "user"
	RootInherit    RootBehavior = "inherit"
)

// BoundingBehavior controls whether the capability bounding set is
// enforced strictly or left alone.
type BoundingBehavior string

const (
	BoundingStrict  BoundingBehavior = "strict"
	BoundingIgnore  BoundingBehavior = "ignore"
	BoundingInherit BoundingBehavior = "inherit"
)

// AuthBehavior controls whether authentication is performed, skipped,
// or deferred to the next outer option level.
type AuthBehavior string

const (
	AuthPerform AuthBehavior = "perform"
	AuthSkip    AuthBehavior = "skip"
	AuthInherit AuthBehavior = "inherit"
)

// Timeout configures the cookie scope, validity duration, and reuse
// budget for a successful authentication (§3 Options "timeout").
// Resolved as a whole struct, never field-by-field (§4.4).
type Timeout struct {
	Type     TimestampType `json:"type" cbor:"type"`
	Duration string        `json:"duration" cbor:"duration"`
	MaxUsage uint32        `json:"max_usage,omitempty" cbor:"max_usage,omitempty"`
}

// OptionsBlock is the set of option values declared at one level of
// the option stack (Default, Global, Role, or Task). A nil field means
// "not declared at this level" for non-inheriting kinds; for kinds
// that carry their own *Inherit value, the sentinel itself can appear
// even when the field is non-nil.
// None of these keys appear in the stable CBOR letter-key table (§6),
// so they keep their full JSON names under CBOR as well.
type OptionsBlock struct {
	Path           *string           `json:"path,omitempty" cbor:"path,omitempty"`
	EnvWhitelist   []string          `json:"env_whitelist,omitempty" cbor:"env_whitelist,omitempty"`
	EnvBlacklist   []string          `json:"env_blacklist,omitempty" cbor:"env_blacklist,omitempty"`
	EnvChecklist   []string          `json:"env_checklist,omitempty" cbor:"env_checklist,omitempty"`
	EnvSet         map[string]string `json:"env_set,omitempty" cbor:"env_set,omitempty"`
	EnvBehavior    EnvBehavior       `json:"env_behavior,omitempty" cbor:"env_behavior,omitempty"`
	PathBehavior   PathBehavior      `json:"path_behavior,omitempty" cbor:"path_behavior,omitempty"`
	Root           RootBehavior      `json:"root,omitempty" cbor:"root,omitempty"`
	Bounding       BoundingBehavior  `json:"bounding,omitempty" cbor:"bounding,omitempty"`
	Authentication AuthBehavior      `json:"authentication,omitempty" cbor:"authentication,omitempty"`
	WildcardDenied string            `json:"wildcard_denied,omitempty" cbor:"wildcard_denied,omitempty"`
	Timeout        *Timeout          `json:"timeout,omitempty" cbor:"timeout,omitempty"`

	Extra map[string]any `json:"-" cbor:"-"`
}
