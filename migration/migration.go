// Package migration implements the migration runner (component C11):
// stepping a policy document's in-memory representation between
// schema versions by applying an ordered chain of registered
// migrations, the way a schema-versioned config format must tolerate
// being loaded by both older and newer binaries.
package migration

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
)

// Migration describes one schema step for a document of type T: from
// and to are the versions it moves between, up applies the step
// forward and down reverses it. Both up and down must be idempotent:
// applying the same step twice to its own output must be a no-op,
// since the runner may be asked to migrate a document that's already
// partway there.
type Migration[T any] struct {
	From *semver.Version
	To   *semver.Version
	Up   func(T) (T, error)
	Down func(T) (T, error)
}

// Registry holds the known migrations for a document type, tried in
// registration order at each step.
type Registry[T any] struct {
	migrations []Migration[T]
}

// NewRegistry builds an empty migration registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Register adds a migration step.
func (r *Registry[T]) Register(m Migration[T]) {
	r.migrations = append(r.migrations, m)
}

// Run steps doc from vFrom to vTo, applying Up for each forward step
// (vTo > vFrom) or Down for each backward step (vTo < vFrom). At each
// iteration it looks for a migration starting at the current version
// (its From for an Up step, its To for a Down step); if the other end
// of that migration is the target, it applies once and stops.
// Otherwise it applies the migration and advances the current version
// to the migration's To (or From, for a Down step), then repeats. It fails if no migration advances past the current
// version, per the "fail if no migration advances" rule — this also
// guards against a misconfigured registry looping forever.
func Run[T any](reg *Registry[T], doc T, vFrom, vTo *semver.Version) (T, error) {
	if vFrom.Equal(vTo) {
		return doc, nil
	}
	if vTo.LessThan(vFrom) {
		return runDown(reg, doc, vFrom, vTo)
	}
	return runUp(reg, doc, vFrom, vTo)
}

func runUp[T any](reg *Registry[T], doc T, vFrom, vTo *semver.Version) (T, error) {
	current := vFrom
	applied := map[string]bool{}
	for !current.Equal(vTo) {
		m, ok := findUpStep(reg, current)
		if !ok {
			var zero T
			return zero, rarerr.WrapDetail(rarerr.ErrNoMigrationPath, rarerr.ConfigurationError, "migration.run",
				fmt.Sprintf("%s -> %s", current, vTo))
		}
		key := stepKey(m.From, m.To)
		if applied[key] {
			var zero T
			return zero, rarerr.New(rarerr.ConfigurationError, "migration.run",
				fmt.Sprintf("migration step %s would be applied twice", key))
		}
		applied[key] = true

		next, err := m.Up(doc)
		if err != nil {
			return next, rarerr.Wrap(err, rarerr.ConfigurationError, "migration.up")
		}
		doc = next
		current = m.To
	}
	return doc, nil
}

func runDown[T any](reg *Registry[T], doc T, vFrom, vTo *semver.Version) (T, error) {
	current := vFrom
	applied := map[string]bool{}
	for !current.Equal(vTo) {
		m, ok := findDownStep(reg, current)
		if !ok {
			var zero T
			return zero, rarerr.WrapDetail(rarerr.ErrNoMigrationPath, rarerr.ConfigurationError, "migration.run",
				fmt.Sprintf("%s -> %s", current, vTo))
		}
		key := stepKey(m.From, m.To)
		if applied[key] {
			var zero T
			return zero, rarerr.New(rarerr.ConfigurationError, "migration.run",
				fmt.Sprintf("migration step %s would be applied twice", key))
		}
		applied[key] = true

		next, err := m.Down(doc)
		if err != nil {
			return next, rarerr.Wrap(err, rarerr.ConfigurationError, "migration.down")
		}
		doc = next
		current = m.From
	}
	return doc, nil
}

// findUpStep returns the migration whose From equals v, preferring
// one whose To doesn't overshoot past a later registered step (in
// practice, registries are a single linear chain, so the first match
// in registration order is always correct).
func findUpStep[T any](reg *Registry[T], v *semver.Version) (Migration[T], bool) {
	for _, m := range reg.migrations {
		if m.From.Equal(v) && m.Up != nil {
			return m, true
		}
	}
	return Migration[T]{}, false
}

func findDownStep[T any](reg *Registry[T], v *semver.Version) (Migration[T], bool) {
	for _, m := range reg.migrations {
		if m.To.Equal(v) && m.Down != nil {
			return m, true
		}
	}
	return Migration[T]{}, false
}

func stepKey(from, to *semver.Version) string {
	return from.String() + "->" + to.String()
}
