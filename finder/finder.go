// Package finder implements the finder (component C7): the core
// "resolve, validate, then act" scan that walks a policy Config's
// roles and tasks for the one best-scoring match for a caller's
// identity and invocation, the same control-flow shape the teacher
// uses to resolve a container by id before acting on it, generalized
// here to an exhaustive scan over every declared (role, task) pair.
package finder

import (
	"os"
	"path/filepath"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/LeChatP/RootAsRole-sub001/actor"
	"github.com/LeChatP/RootAsRole-sub001/cap"
	"github.com/LeChatP/RootAsRole-sub001/cmdmatch"
	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/policy/optstack"
	"github.com/LeChatP/RootAsRole-sub001/score"
)

// Caller describes the invoking process's identity.
type Caller struct {
	UID        uint32
	Membership mapset.Set[uint32]
}

// Filter narrows the scan to a specific role and, optionally, a
// specific task within it (§4.7: `filter.role`, `filter.task`).
type Filter struct {
	Role string
	Task string
}

// BestExecSettings is the finder's output: everything the launcher
// needs to assemble an exec plan, plus the winning Score for logging
// and `--info` (§4.7).
type BestExecSettings struct {
	RoleName     string
	TaskID       policy.TaskID
	ResolvedPath string
	Argv         []string
	TargetUID    *uint32
	TargetGIDs   []uint32
	Capabilities cap.Set
	Options      *optstack.Stack
	Score        score.Score

	roleIndex int
	taskIndex int
}

// Explanation records why a given (role, task) pair did or did not
// win, surfaced via `sr --info` (§5 operational requirement).
type Explanation struct {
	RoleName   string
	TaskName   string
	UserMatch  bool
	CmdMatch   bool
	Score      score.Score
	ResolvedAt int // role index, for deterministic ordering display
}

// registry is the package-level command-matcher registry; built-ins
// never vary per call, so one shared instance is reused.
var registry = cmdmatch.NewRegistry()

// FindBest implements `find_best(caller, argv, filter) -> BestExecSettings`
// (§4.7).
func FindBest(cfg *policy.Config, caller Caller, argv []string, filter Filter) (BestExecSettings, []Explanation, error) {
	if len(argv) == 0 {
		return BestExecSettings{}, nil, rarerr.New(rarerr.InvalidArguments, "find_best", "empty argv")
	}
	cmdPath := resolveArgv0(argv[0])
	cmdArgs := argv[1:]

	var best BestExecSettings
	haveBest := false
	var explanations []Explanation

	for ri, role := range cfg.Roles {
		if filter.Role != "" && filter.Role != role.Name {
			continue
		}
		userMin, userMatch := actorMatch(role, caller)
		if !userMatch {
			explanations = append(explanations, Explanation{RoleName: role.Name, UserMatch: false, ResolvedAt: ri})
			continue
		}

		for ti, task := range role.Tasks {
			if filter.Task != "" && (task.ID.Positional || task.ID.Name != filter.Task) {
				continue
			}

			// authentication=skip is acted on by the auth gateway, not
			// the finder; here it only counts as a SkipAuth relaxation in
			// computeSecurityMin, and Options carries it into
			// BestExecSettings for logging/--info.
			stack := optstack.New(nil, cfg.Options, role.Options, task.Options)

			cmdMin, resolvedPath, cmdMatched := matchCommand(task.Commands, stack, cmdPath, cmdArgs)

			explanation := Explanation{
				RoleName:   role.Name,
				TaskName:   taskLabel(task.ID),
				UserMatch:  true,
				CmdMatch:   cmdMatched,
				ResolvedAt: ri,
			}

			if !cmdMatched {
				explanations = append(explanations, explanation)
				continue
			}

			effectiveCaps, err := task.Credentials.Capabilities.Effective()
			if err != nil {
				return BestExecSettings{}, explanations, err
			}
			capsMin := score.Classify(effectiveCaps)
			setUserMin := computeSetUserMin(task.Credentials)
			secMin := computeSecurityMin(stack)

			candidateScore := score.Score{
				UserMin:     userMin,
				CmdMin:      cmdMin,
				CapsMin:     capsMin,
				SetUserMin:  setUserMin,
				SecurityMin: secMin,
			}
			explanation.Score = candidateScore
			explanations = append(explanations, explanation)

			if !haveBest || betterCandidate(candidateScore, ri, ti, best.Score, best.roleIndex, best.taskIndex) {
				targetUID, targetGIDs := resolveTargets(task.Credentials)
				best = BestExecSettings{
					RoleName:     role.Name,
					TaskID:       task.ID,
					ResolvedPath: resolvedPath,
					Argv:         append([]string{resolvedPath}, cmdArgs...),
					TargetUID:    targetUID,
					TargetGIDs:   targetGIDs,
					Capabilities: effectiveCaps,
					Options:      stack,
					Score:        candidateScore,
					roleIndex:    ri,
					taskIndex:    ti,
				}
				haveBest = true
			}
		}
	}

	if !haveBest {
		return BestExecSettings{}, explanations, rarerr.ErrNoMatch
	}
	return best, explanations, nil
}

// betterCandidate applies the total order from §4.6 plus the §4.7 step
//3 tie-break: equal scores are broken by (role index, task index),
// earlier declaration wins.
func betterCandidate(candScore score.Score, candRole, candTask int, bestScore score.Score, bestRole, bestTask int) bool {
	if candScore.Less(bestScore) {
		return true
	}
	if bestScore.Less(candScore) {
		return false
	}
	if candRole != bestRole {
		return candRole < bestRole
	}
	return candTask < bestTask
}

// actorMatch finds the best ActorMatchMin among a role's declared
// actors for the caller, honoring "user match beats group match"
// (§4.7 step 2).
func actorMatch(role *policy.Role, caller Caller) (score.ActorMatchMin, bool) {
	var best score.ActorMatchMin
	found := false
	for _, entry := range role.Actors {
		a := toActor(entry)
		if !a.Matches(caller.UID, caller.Membership) {
			continue
		}
		var candidate score.ActorMatchMin
		switch a.Kind {
		case actor.KindUser:
			candidate = score.ActorMatchMin{Kind: score.ActorUserMatch}
		case actor.KindGroup:
			candidate = score.ActorMatchMin{Kind: score.ActorGroupMatch, GroupCount: len(a.Group.Groups)}
		default:
			continue
		}
		if !found || candidate.Less(best) {
			best = candidate
			found = true
		}
	}
	if !found {
		return score.ActorMatchMin{Kind: score.ActorNoMatch}, false
	}
	return best, true
}

// toActor converts a policy document's serialized ActorEntry into the
// actor package's tagged Actor variant.
func toActor(e policy.ActorEntry) actor.Actor {
	switch {
	case e.Raw != "":
		return actor.NewUnknownActor(e.Raw)
	case e.User != "":
		return actor.NewUserActor(actor.ParseRef(e.User))
	case len(e.Groups) > 0:
		refs := make([]actor.Ref, len(e.Groups))
		for i, g := range e.Groups {
			refs[i] = actor.ParseRef(g)
		}
		return actor.NewGroupActor(refs...)
	default:
		return actor.NewUnknownActor("")
	}
}

// matchCommand iterates a task's commands.add list (adjusted by
// default_behavior and commands.sub, per §3/§4.5) against the
// command-matcher registry and returns the best CmdMin found.
// commands.sub always excludes a caller invocation it matches, whether
// default_behavior is "none" (explicit allow-list) or "all" (deny-list
// carved out of the universal default).
func matchCommand(commands policy.Commands, stack *optstack.Stack, cmdPath string, cmdArgs []string) (score.CmdMin, string, bool) {
	in := cmdmatch.Input{CallerPath: cmdPath, CallerArgs: cmdArgs}
	denied := stack.WildcardDenied()

	if anyMatches(commands.Sub, in) {
		return score.CmdMin{}, "", false
	}

	var best score.CmdMin
	var bestPath string
	found := false
	for _, spec := range commands.Add {
		res, ok := registry.Match(spec, in)
		if !ok || !res.CmdMin.Status {
			continue
		}
		if denied.Found && cmdmatch.DeniedByWildcard(res.ResolvedPath, denied.Value) {
			continue
		}
		if !found || res.CmdMin.Less(best) {
			best = res.CmdMin
			bestPath = res.ResolvedPath
			found = true
		}
	}
	if found {
		return best, bestPath, true
	}

	if commands.Default == policy.DefaultAll {
		resolved := resolveArgv0(cmdPath)
		if denied.Found && cmdmatch.DeniedByWildcard(resolved, denied.Value) {
			return score.CmdMin{}, "", false
		}
		return score.CmdMin{Status: true}, resolved, true
	}

	return score.CmdMin{}, "", false
}

// anyMatches reports whether the caller's invocation matches any of
// the given command specs via the registry.
func anyMatches(specs []policy.Command, in cmdmatch.Input) bool {
	for _, spec := range specs {
		res, ok := registry.Match(spec, in)
		if ok && res.CmdMin.Status {
			return true
		}
	}
	return false
}

// computeSetUserMin grades a task's declared identity change,
// preferring "no change" over any change and non-root over root
// (§4.6, mirroring score.SetUserMin's ordering).
func computeSetUserMin(cred policy.Credentials) score.SetUserMin {
	var out score.SetUserMin
	if cred.SetUID != nil {
		fallback := cred.SetUID.Fallback
		isRoot := fallback != nil && *fallback == 0
		out.UID = &score.SetuidMin{IsRoot: isRoot}
	}
	if cred.SetGID != nil {
		fallback := cred.SetGID.Fallback
		isRoot := fallback != nil && *fallback == 0
		out.GID = &score.SetgidMin{IsRoot: isRoot, NumGroups: len(cred.SetGID.Choices())}
	}
	return out
}

// computeSecurityMin grades the resolved options' relaxations relative
// to the hardened default (§4.6).
func computeSecurityMin(stack *optstack.Stack) score.SecurityMin {
	var sec score.SecurityMin
	if b := stack.Bounding(); b.Found && b.Value == policy.BoundingIgnore {
		sec |= score.DisableBounding
	}
	if r := stack.Root(); r.Found && r.Value == policy.RootPrivileged {
		sec |= score.EnableRoot
	}
	if e := stack.EnvBehavior(); e.Found && e.Value == policy.EnvKeep {
		sec |= score.KeepEnv
	}
	if p := stack.PathBehavior(); p.Found {
		switch p.Value {
		case policy.PathKeepSafe:
			sec |= score.KeepPath
		case policy.PathKeepUnsafe:
			sec |= score.KeepPath | score.KeepUnsafePath
		}
	}
	if a := stack.Authentication(); a.Found && a.Value == policy.AuthSkip {
		sec |= score.SkipAuth
	}
	return sec
}

// resolveTargets returns the target uid/gid(s) a task grants, chosen
// from its IDSelector fallback (the caller's explicit -u/-g choice, if
// any, is validated against Choices() by the caller of FindBest, not
// here — the finder always reports the fallback identity).
func resolveTargets(cred policy.Credentials) (*uint32, []uint32) {
	var uid *uint32
	var gids []uint32
	if cred.SetUID != nil && cred.SetUID.Fallback != nil {
		u := *cred.SetUID.Fallback
		uid = &u
	}
	if cred.SetGID != nil {
		gids = cred.SetGID.Choices()
	}
	return uid, gids
}

func resolveArgv0(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if resolved, err := lookPath(path); err == nil {
		return resolved
	}
	return path
}

func taskLabel(id policy.TaskID) string {
	if id.Positional {
		return "#" + strconv.Itoa(id.Index)
	}
	return id.Name
}

// lookPath resolves a bare command name against PATH, mirroring the
// launcher-side PATH resolution cmdmatch's matchers assume has already
// happened for the caller's argv[0].
func lookPath(file string) (string, error) {
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
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
