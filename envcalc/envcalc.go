// Package envcalc implements the environment calculator (component
// C8): it rebuilds a spawned process's environment and PATH from the
// caller's environment and the resolved Option Stack, the same
// filter-then-rebuild shape the teacher's container spec applies to
// building a container's env slice from image defaults plus
// user-supplied overrides, generalized here to the delete/keep
// behaviors and PATH sub-policy §4.8 describes.
package envcalc

import (
	"sort"
	"strings"

	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/policy/optstack"
)

// Entry is one key=value pair of caller environment, preserving the
// order it appeared in the caller's environ(7) slice.
type Entry struct {
	Key   string
	Value string
}

// ParseEnviron splits a raw os.Environ()-style slice into ordered
// Entry pairs.
func ParseEnviron(environ []string) []Entry {
	out := make([]Entry, 0, len(environ))
	for _, kv := range environ {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			out = append(out, Entry{Key: kv[:idx], Value: kv[idx+1:]})
		}
	}
	return out
}

// Result is the calculator's ordered output: the final environment,
// insertion-ordered, plus the separately resolved PATH.
type Result struct {
	Env  []Entry
	Path string
}

// AsSlice renders Result.Env back into "KEY=VALUE" environ(7) form.
func (r Result) AsSlice() []string {
	out := make([]string, len(r.Env))
	for i, e := range r.Env {
		out[i] = e.Key + "=" + e.Value
	}
	return out
}

func contains(list []string, key string) bool {
	for _, k := range list {
		if k == key {
			return true
		}
	}
	return false
}

// isSafe reports whether a value contains none of the characters
// forbidden in a checklist-admitted environment value: newline, NUL,
// or any character in wildcardDenied (§4.8).
func isSafe(value, wildcardDenied string) bool {
	if strings.ContainsAny(value, "\n\x00") {
		return false
	}
	if wildcardDenied != "" && strings.ContainsAny(value, wildcardDenied) {
		return false
	}
	return true
}

// Calculate implements §4.8's algorithm: resolve env_behavior from the
// option stack and rebuild the environment accordingly, then resolve
// PATH under path_behavior.
func Calculate(stack *optstack.Stack, callerEnv []Entry) Result {
	behavior := stack.EnvBehavior()
	whitelist := stack.EnvWhitelist()
	blacklist := stack.EnvBlacklist()
	checklist := stack.EnvChecklist()
	envSet := stack.EnvSet()
	denied := stack.WildcardDenied()

	var env []Entry
	switch {
	case behavior.Found && behavior.Value == policy.EnvKeep:
		env = calculateKeep(callerEnv, blacklist.Value, checklist.Value, denied.Value)
	default:
		// EnvDelete is the hardened default applied whenever nothing
		// declares "keep" (unset or inherit-with-nothing-behind-it
		// both resolve here).
		env = calculateDelete(callerEnv, envSet.Value, whitelist.Value, checklist.Value, denied.Value)
	}

	return Result{
		Env:  env,
		Path: calculatePath(stack, callerEnv),
	}
}

// calculateDelete starts from empty, adds env_set, then whitelist
// entries, then checklist entries that pass the safety check (§4.8
// behavior=delete).
func calculateDelete(callerEnv []Entry, envSet map[string]string, whitelist, checklist []string, wildcardDenied string) []Entry {
	var out []Entry
	seen := map[string]bool{}
	add := func(k, v string) {
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, Entry{Key: k, Value: v})
	}

	for _, k := range sortedKeys(envSet) {
		add(k, envSet[k])
	}
	for _, e := range callerEnv {
		if contains(whitelist, e.Key) {
			add(e.Key, e.Value)
		}
	}
	for _, e := range callerEnv {
		if contains(checklist, e.Key) && isSafe(e.Value, wildcardDenied) {
			add(e.Key, e.Value)
		}
	}
	return out
}

// calculateKeep starts from the caller's environment, drops blacklist
// keys, and drops checklist keys that fail the safety check (§4.8
// behavior=keep).
func calculateKeep(callerEnv []Entry, blacklist, checklist []string, wildcardDenied string) []Entry {
	var out []Entry
	for _, e := range callerEnv {
		if contains(blacklist, e.Key) {
			continue
		}
		if contains(checklist, e.Key) && !isSafe(e.Value, wildcardDenied) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// calculatePath resolves PATH under path_behavior (§4.8): delete
// replaces it with the option's declared path, keep-safe filters the
// caller's PATH to existing, non-world-writable entries, and
// keep-unsafe passes it through verbatim.
func calculatePath(stack *optstack.Stack, callerEnv []Entry) string {
	callerPath := ""
	for _, e := range callerEnv {
		if e.Key == "PATH" {
			callerPath = e.Value
			break
		}
	}

	behavior := stack.PathBehavior()
	if !behavior.Found {
		return callerPath
	}

	switch behavior.Value {
	case policy.PathDelete:
		p := stack.Path()
		if p.Found {
			return p.Value
		}
		return ""
	case policy.PathKeepSafe:
		return filterSafePath(callerPath)
	case policy.PathKeepUnsafe:
		return callerPath
	default:
		return callerPath
	}
}
