// Package errors provides predefined sentinel errors for common failure
// cases across the policy engine.
package errors

// Matching errors.
var (
	// ErrNoMatch indicates no (role, task) fully matched the caller and
	// command (spec §4.7 step 4, §7).
	ErrNoMatch = &CoreError{
		Kind:   PermissionDenied,
		Detail: "no matching role or task",
	}

	// ErrRoleNotFound indicates a requested role filter does not exist.
	ErrRoleNotFound = &CoreError{
		Kind:   ConfigurationError,
		Detail: "role not found",
	}

	// ErrTaskNotFound indicates a requested task filter does not exist
	// within its role.
	ErrTaskNotFound = &CoreError{
		Kind:   ConfigurationError,
		Detail: "task not found",
	}

	// ErrTaskFilterNeedsRole indicates -t/--task was given without
	// -r/--role (spec §6 CLI surface).
	ErrTaskFilterNeedsRole = &CoreError{
		Kind:   InvalidArguments,
		Detail: "--task requires --role",
	}
)

// Policy document errors (C3).
var (
	// ErrDuplicateRoleName indicates two roles share a name.
	ErrDuplicateRoleName = &CoreError{
		Kind:   ConfigurationError,
		Detail: "duplicate role name",
	}

	// ErrDuplicateTaskName indicates two tasks within a role share a name.
	ErrDuplicateTaskName = &CoreError{
		Kind:   ConfigurationError,
		Detail: "duplicate task name within role",
	}

	// ErrInvalidVersion indicates Config.Version does not parse as semver.
	ErrInvalidVersion = &CoreError{
		Kind:   ConfigurationError,
		Detail: "invalid policy version",
	}

	// ErrUnknownParentRole indicates a role's parents list references a
	// role that does not exist.
	ErrUnknownParentRole = &CoreError{
		Kind:   ConfigurationError,
		Detail: "parent role does not exist",
	}

	// ErrUnknownStorageMethod indicates storage.method is neither json
	// nor cbor.
	ErrUnknownStorageMethod = &CoreError{
		Kind:   ConfigurationError,
		Detail: "unknown storage method",
	}
)

// Authentication errors (C9, C12).
var (
	// ErrAuthCancelled indicates the caller cancelled the PAM prompt.
	ErrAuthCancelled = &CoreError{
		Kind:   AuthenticationFailed,
		Detail: "authentication cancelled",
	}

	// ErrAuthRejected indicates PAM rejected the credentials.
	ErrAuthRejected = &CoreError{
		Kind:   AuthenticationFailed,
		Detail: "authentication rejected",
	}

	// ErrCookieInvalid indicates the timestamp cookie exists but is
	// expired, exhausted, or clock-skewed.
	ErrCookieInvalid = &CoreError{
		Kind:   AuthenticationFailed,
		Detail: "timestamp cookie invalid",
	}

	// ErrNoTTY indicates a TTY-scoped cookie was requested but the
	// caller has no controlling terminal.
	ErrNoTTY = &CoreError{
		Kind:   ConfigurationError,
		Detail: "caller has no controlling tty",
	}
)

// Capability errors (C1, C10, C13).
var (
	// ErrUnknownCapability indicates a capability name does not resolve.
	ErrUnknownCapability = &CoreError{
		Kind:   ConfigurationError,
		Detail: "unknown capability",
	}

	// ErrCapabilityRaiseFailed indicates a scoped capability raise
	// failed (fatal per §4.14 failure-semantics summary).
	ErrCapabilityRaiseFailed = &CoreError{
		Kind:   InsufficientPrivileges,
		Detail: "failed to raise capability",
	}
)

// Persistence and immutability errors (C10).
var (
	// ErrPolicyFileMissing indicates the policy file does not exist.
	ErrPolicyFileMissing = &CoreError{
		Kind:   ConfigurationError,
		Detail: "policy file not found",
	}

	// ErrImmutableToggleFailed indicates the FS_IMMUTABLE_FL toggle
	// around a write failed.
	ErrImmutableToggleFailed = &CoreError{
		Kind:   InsufficientPrivileges,
		Detail: "failed to toggle immutable flag",
	}

	// ErrTornWrite indicates an atomic write could not complete and was
	// rolled back; the on-disk file is guaranteed unchanged.
	ErrTornWrite = &CoreError{
		Kind:   SystemError,
		Detail: "failed to persist policy file atomically",
	}
)

// Migration errors (C11).
var (
	// ErrNoMigrationPath indicates no migration step advances from the
	// document's version toward the target version.
	ErrNoMigrationPath = &CoreError{
		Kind:   ConfigurationError,
		Detail: "no migration path available",
	}
)

// Command matching and execution errors (C5, C13).
var (
	// ErrExecutableNotFound indicates cmd_path could not be resolved
	// against PATH or as an absolute path.
	ErrExecutableNotFound = &CoreError{
		Kind:   ExecutionFailed,
		Detail: "executable not found",
	}

	// ErrWildcardDenied indicates the resolved path contains a
	// character forbidden by the wildcard_denied option.
	ErrWildcardDenied = &CoreError{
		Kind:   PermissionDenied,
		Detail: "resolved path contains a denied character",
	}
)

// Policy Editor Kernel errors (C14).
var (
	// ErrCallerNotAdmin indicates the caller's roles do not include an
	// admin role, so the edit operation is refused.
	ErrCallerNotAdmin = &CoreError{
		Kind:   PermissionDenied,
		Detail: "caller is not an admin",
	}

	// ErrSSDViolation indicates a grant would violate a static
	// separation-of-duties constraint.
	ErrSSDViolation = &CoreError{
		Kind:   ConfigurationError,
		Detail: "grant violates static separation of duties",
	}

	// ErrNotEditing indicates a Save/Abort was called outside the
	// Editing state.
	ErrNotEditing = &CoreError{
		Kind:   InvalidArguments,
		Detail: "no edit in progress",
	}
)
