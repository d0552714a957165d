// Package cmdmatch implements the command-matcher registry (component
// C5): a pluggable set of pure matchers tried in registration order
// against a Task's declared Command, each returning a score.CmdMin
// grade and the resolved executable path on success. It plays the
// same dispatch-by-trying-each-candidate-in-order role the teacher's
// hooks package gives lifecycle hooks, generalized from a fixed
// switch over HookType to an open, registrable list of matchers.
package cmdmatch

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/shlex"

	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/score"
)

// Input is the caller-side context a matcher needs: the command the
// caller actually invoked, resolved against PATH already, plus its raw
// argv for regex matching.
type Input struct {
	// CallerPath is the caller's argv[0] resolved to an absolute path
	// (via PATH lookup if it was given relative).
	CallerPath string
	// CallerArgs is the caller's argv[1:].
	CallerArgs []string
}

// Result is what a successful matcher returns: a quality grade and the
// resolved path the launcher should execute.
type Result struct {
	CmdMin       score.CmdMin
	ResolvedPath string
}

// Matcher is a pure function from a declared Command and the caller's
// invocation to a match grade. ok is false when this matcher does not
// apply to spec's shape at all (e.g. the hashed-binary matcher skips
// every Command that isn't its structured form); a matcher that
// applies but the caller's invocation doesn't satisfy returns
// ok=true with CmdMin.Status=false so the registry can still record
// why the closest candidate failed, without aborting the rest of the
// registry (§7: matcher errors are local, never abort the finder).
type Matcher interface {
	Name() string
	Match(spec policy.Command, in Input) (Result, bool)
}

// Registry holds matchers in registration order, tried in order until
// one reports a match.
type Registry struct {
	matchers []Matcher
}

// NewRegistry builds a Registry with the four built-in matchers in the
// order §4.5 lists them: simple string, glob path, regex args, hashed
// binary.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(SimpleStringMatcher{})
	r.Register(GlobPathMatcher{})
	r.Register(RegexArgsMatcher{})
	r.Register(HashedBinaryMatcher{})
	return r
}

// Register appends a matcher to the registry.
func (r *Registry) Register(m Matcher) { r.matchers = append(r.matchers, m) }

// Match tries every registered matcher in order and returns the first
// one that reports an actual match (CmdMin.Status==true).
func (r *Registry) Match(spec policy.Command, in Input) (Result, bool) {
	for _, m := range r.matchers {
		res, ok := m.Match(spec, in)
		if ok && res.CmdMin.Status {
			return res, true
		}
	}
	return Result{}, false
}

// splitSimple shell-splits a Command's Simple spec into its path
// pattern and argv pattern, the way §4.5's simple-string matcher
// describes: first token is the path, remainder is the argv pattern.
func splitSimple(spec policy.Command) (path string, args []string, ok bool) {
	if !spec.IsSimple() || spec.Simple == "" {
		return "", nil, false
	}
	tokens, err := shlex.Split(spec.Simple)
	if err != nil || len(tokens) == 0 {
		return "", nil, false
	}
	return tokens[0], tokens[1:], true
}

// resolvePath resolves a possibly-relative path pattern against PATH,
// mirroring what the launcher would do to find the caller's argv[0].
func resolvePath(pattern string) string {
	if filepath.IsAbs(pattern) {
		return pattern
	}
	if resolved, err := exec_LookPath(pattern); err == nil {
		return resolved
	}
	return pattern
}

// exec_LookPath is a thin indirection over os.Executable-style PATH
// resolution kept here (rather than importing os/exec solely for
// LookPath) so tests can run without a populated PATH.
var exec_LookPath = func(file string) (string, error) {
	return lookPathEnv(file, os.Getenv("PATH"))
}

func lookPathEnv(file, pathEnv string) (string, error) {
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}

// DeniedByWildcard reports whether a resolved path contains any
// character from deniedChars, implementing the wildcard_denied option
// (§4.5): a wildcard or regex match that resolves to a path containing
// one of these characters is rejected even though the pattern matched,
// closing off shell-metacharacter tricks hidden behind a glob.
func DeniedByWildcard(resolvedPath, deniedChars string) bool {
	if deniedChars == "" {
		return false
	}
	return strings.ContainsAny(resolvedPath, deniedChars)
}

func argsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SimpleStringMatcher implements the literal path+argv match (§4.5).
type SimpleStringMatcher struct{}

func (SimpleStringMatcher) Name() string { return "simple_string" }

func (SimpleStringMatcher) Match(spec policy.Command, in Input) (Result, bool) {
	pathPattern, argPattern, ok := splitSimple(spec)
	if !ok || strings.ContainsAny(pathPattern, "*?[") {
		return Result{}, false
	}
	resolved := resolvePath(pathPattern)
	matched := resolved == in.CallerPath && argsEqual(argPattern, in.CallerArgs)
	return Result{CmdMin: score.CmdMin{Status: matched}, ResolvedPath: resolved}, true
}

// GlobPathMatcher implements the glob-path matcher: `*` matches a
// single path segment, `**` matches any number of segments (§4.5).
type GlobPathMatcher struct{}

func (GlobPathMatcher) Name() string { return "glob_path" }

func (GlobPathMatcher) Match(spec policy.Command, in Input) (Result, bool) {
	pathPattern, argPattern, ok := splitSimple(spec)
	if !ok || !strings.ContainsAny(pathPattern, "*?[") {
		return Result{}, false
	}
	matched, err := doublestar.Match(pathPattern, in.CallerPath)
	if err != nil {
		return Result{}, false
	}
	if matched && !argsEqual(argPattern, in.CallerArgs) {
		matched = false
	}
	var order score.CmdOrder
	order |= score.WildcardPath
	if strings.Contains(pathPattern, "**") {
		order |= score.FullWildcardPath
	}
	return Result{
		CmdMin:       score.CmdMin{Status: matched, Order: order},
		ResolvedPath: in.CallerPath,
	}, true
}

// RegexArgsMatcher implements the regex-argv matcher: the command
// spec's remainder, space-joined, is a regex matched against the
// caller's argv, space-joined (§4.5).
type RegexArgsMatcher struct{}

func (RegexArgsMatcher) Name() string { return "regex_args" }

func (RegexArgsMatcher) Match(spec policy.Command, in Input) (Result, bool) {
	pathPattern, argPattern, ok := splitSimple(spec)
	if !ok || len(argPattern) == 0 {
		return Result{}, false
	}
	pattern := strings.Join(argPattern, " ")
	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return Result{}, false
	}
	resolved := resolvePath(pathPattern)
	matched := resolved == in.CallerPath && re.MatchString(strings.Join(in.CallerArgs, " "))

	var order score.CmdOrder
	order |= score.RegexArgs
	if pattern == ".*" {
		order |= score.FullRegexArgs
	}
	return Result{CmdMin: score.CmdMin{Status: matched, Order: order}, ResolvedPath: resolved}, true
}
