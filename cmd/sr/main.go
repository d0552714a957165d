// Command sr is the privileged-execution launcher (§5/§6): it resolves
// the caller's best matching role/task, authenticates if the option
// stack requires it, assembles an exec plan, and replaces itself with
// the target program under that plan. Its flag handling follows the
// teacher's cmd/root.go and cmd/run.go shape (persistent flags
// registered in init, a single RunE, exit codes carried on the
// returned error) generalized from "run a container" to "resolve and
// run a policy-matched command".
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LeChatP/RootAsRole-sub001/actor"
	"github.com/LeChatP/RootAsRole-sub001/auth"
	"github.com/LeChatP/RootAsRole-sub001/cookie"
	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
	"github.com/LeChatP/RootAsRole-sub001/envcalc"
	"github.com/LeChatP/RootAsRole-sub001/execplan"
	"github.com/LeChatP/RootAsRole-sub001/finder"
	"github.com/LeChatP/RootAsRole-sub001/logging"
	"github.com/LeChatP/RootAsRole-sub001/migration"
	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/policy/optstack"
	"github.com/LeChatP/RootAsRole-sub001/storage"
)

const (
	defaultPolicyPath = "/etc/security/rootasrole.json"
	defaultCookieDir  = "/var/run/rar/ts/"
)

var (
	flagRole        string
	flagTask        string
	flagUser        string
	flagGroup       string
	flagPreserveEnv bool
	flagPrompt      string
	flagInfo        bool
	flagPurge       bool
)

var rootCmd = &cobra.Command{
	Use:           "sr [flags] -- command [args...]",
	Short:         "run a command under a policy-matched role",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.ArbitraryArgs,
	RunE:          runSr,
}

func init() {
	flags := rootCmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVarP(&flagRole, "role", "r", "", "filter to role NAME")
	flags.StringVarP(&flagTask, "task", "t", "", "filter to task NAME (requires -r)")
	flags.StringVarP(&flagUser, "user", "u", "", "request target user")
	flags.StringVarP(&flagGroup, "group", "g", "", "request target group(s), comma separated")
	flags.BoolVarP(&flagPreserveEnv, "preserve-env", "E", false, "request env_behavior=keep, honored only if policy permits")
	flags.StringVarP(&flagPrompt, "prompt", "p", "", "override the password prompt")
	flags.BoolVarP(&flagInfo, "info", "i", false, "print the resolved role, task, identities, capabilities and options, then exit without executing")
	flags.BoolVarP(&flagPurge, "purge-cookies", "K", false, "purge the caller's auth cookies and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func runSr(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	uid := uint32(os.Getuid())

	if flagTask != "" && flagRole == "" {
		return rarerr.ErrTaskFilterNeedsRole
	}

	cookieStore := cookie.NewStore(defaultCookieDir)
	if flagPurge {
		return cookieStore.PurgeUID(uid)
	}
	if len(args) == 0 {
		return rarerr.New(rarerr.InvalidArguments, "sr", "no command given")
	}

	cfg, err := loadPolicy()
	if err != nil {
		return err
	}

	caller := finder.Caller{UID: uid, Membership: actor.Membership(uid)}
	filter := finder.Filter{Role: flagRole, Task: flagTask}

	best, explanations, err := finder.FindBest(cfg, caller, args, filter)
	if err != nil {
		if flagInfo {
			printExplanations(explanations)
			return nil
		}
		return err
	}

	if err := applyRequestedTargets(cfg, &best); err != nil {
		return err
	}
	best.Options = withEnvOverride(best.Options)

	if flagInfo {
		printInfo(best)
		return nil
	}

	logger := logging.WithUID(logging.WithRole(logging.Default(), best.RoleName), uid)
	logger = logging.WithPath(logger, best.ResolvedPath)

	gw := auth.NewGateway(cookieStore, auth.NewConsoleAuthenticator(loadPasswordTable()))
	callerName := uidName(uid)
	ts := resolveTimestamp(cfg, best.Options)
	if err := gw.Authenticate(ctx, uid, callerName, flagPrompt, best.Options, ts); err != nil {
		logger.Warn("authentication failed", "error", err)
		return err
	}

	plan := execplan.Assemble(best, envcalc.ParseEnviron(os.Environ()))
	logger.Info("executing", "task", taskLabel(best.TaskID), "argv", plan.Argv)

	if err := applyAndExec(plan); err != nil {
		return rarerr.Wrap(err, rarerr.ExecutionFailed, "sr.exec")
	}
	return nil
}

// loadPolicy loads the policy document from its well-known path and
// migrates it to the current schema version when the stored version
// differs; storage.Backend.Load itself only decodes and links.
func loadPolicy() (*policy.Config, error) {
	backend := storage.NewBackend()
	desc := policy.StorageDescriptor{Method: policy.StorageJSON, Path: defaultPolicyPath}
	cfg, err := backend.Load(desc)
	if err != nil {
		return nil, err
	}

	version, err := cfg.ParsedVersion()
	if err != nil {
		return nil, err
	}
	if !version.Equal(migration.CurrentVersion) {
		migrated, err := migration.Run(migration.NewPolicyConfigRegistry(), cfg, version, migration.CurrentVersion)
		if err != nil {
			return nil, err
		}
		cfg = migrated
		if err := policy.Link(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applyRequestedTargets validates a caller's -u/-g override against
// the winning task's declared choices; FindBest itself never performs
// this check (finder.go's resolveTargets is explicit that this is the
// caller's job).
func applyRequestedTargets(cfg *policy.Config, best *finder.BestExecSettings) error {
	role := cfg.RoleByName(best.RoleName)
	if role == nil {
		return rarerr.Wrap(rarerr.ErrRoleNotFound, rarerr.ConfigurationError, "sr")
	}
	task := findTaskByID(role, best.TaskID)
	if task == nil {
		return rarerr.Wrap(rarerr.ErrTaskNotFound, rarerr.ConfigurationError, "sr")
	}

	if flagUser != "" {
		resolved, ok := actor.ResolveUser(actor.ParseRef(flagUser))
		if !ok || !containsUint32(task.Credentials.SetUID.Choices(), resolved.UID) {
			return rarerr.WrapDetail(rarerr.ErrNoMatch, rarerr.PermissionDenied, "sr", "requested user not among the task's choices")
		}
		best.TargetUID = &resolved.UID
	}

	if flagGroup != "" {
		choices := task.Credentials.SetGID.Choices()
		var gids []uint32
		for _, name := range strings.Split(flagGroup, ",") {
			resolved, ok := actor.ResolveGroup(actor.ParseRef(name))
			if !ok || !containsUint32(choices, resolved.GID) {
				return rarerr.WrapDetail(rarerr.ErrNoMatch, rarerr.PermissionDenied, "sr", "requested group not among the task's choices")
			}
			gids = append(gids, resolved.GID)
		}
		best.TargetGIDs = gids
	}
	return nil
}

func findTaskByID(role *policy.Role, id policy.TaskID) *policy.Task {
	for _, t := range role.Tasks {
		if t.ID.Positional == id.Positional && t.ID.Positional {
			if t.ID.Index == id.Index {
				return t
			}
			continue
		}
		if t.ID.Name == id.Name {
			return t
		}
	}
	return nil
}

func containsUint32(haystack []uint32, needle uint32) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// withEnvOverride rebuilds the option stack with a caller-supplied
// env_behavior=keep request at the Default level: since the Default
// level resolves last, -E only takes effect when no Global/Role/Task
// level already declares env_behavior, matching "honored only if
// policy permits" (§6).
func withEnvOverride(stack *optstack.Stack) *optstack.Stack {
	if !flagPreserveEnv {
		return stack
	}
	defaults := &policy.OptionsBlock{EnvBehavior: policy.EnvKeep}
	return optstack.New(defaults, stack.Global, stack.Role, stack.Task)
}

// resolveTimestamp prefers the effective option stack's per-scope
// timeout over the document's top-level default, converting Timeout's
// shape into the TimestampDescriptor the auth gateway expects.
func resolveTimestamp(cfg *policy.Config, stack *optstack.Stack) *policy.TimestampDescriptor {
	if t := stack.Timeout(); t.Found && t.Value != nil {
		return &policy.TimestampDescriptor{Type: t.Value.Type, Duration: t.Value.Duration, MaxUsage: t.Value.MaxUsage}
	}
	return cfg.Timestamp
}

// loadPasswordTable is the seam where a production PAM binding would
// plug in (auth.ConsoleAuthenticator's own doc comment: "a
// development/test double, not a production credential store"). With
// none available, sr authenticates only against valid cookies or an
// explicit authentication=skip; a bare console prompt always rejects.
func loadPasswordTable() map[string]string {
	return nil
}

func uidName(uid uint32) string {
	if u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10)); err == nil {
		return u.Username
	}
	return strconv.FormatUint(uint64(uid), 10)
}

func taskLabel(id policy.TaskID) string {
	if id.Positional {
		return "#" + strconv.Itoa(id.Index)
	}
	return id.Name
}

func printInfo(best finder.BestExecSettings) {
	fmt.Printf("role: %s\n", best.RoleName)
	fmt.Printf("task: %s\n", taskLabel(best.TaskID))
	if best.TargetUID != nil {
		fmt.Printf("uid: %d\n", *best.TargetUID)
	}
	fmt.Printf("gids: %v\n", best.TargetGIDs)
	fmt.Printf("capabilities: %s\n", strings.Join(best.Capabilities.Names(), ","))
	fmt.Printf("path: %s\n", best.ResolvedPath)
	if b := best.Options.Bounding(); b.Found {
		fmt.Printf("bounding: %s\n", b.Value)
	}
	if r := best.Options.Root(); r.Found {
		fmt.Printf("root: %s\n", r.Value)
	}
	if a := best.Options.Authentication(); a.Found {
		fmt.Printf("authentication: %s\n", a.Value)
	}
}

func printExplanations(explanations []finder.Explanation) {
	for _, e := range explanations {
		fmt.Printf("role=%s task=%s user_match=%v cmd_match=%v\n", e.RoleName, e.TaskName, e.UserMatch, e.CmdMatch)
	}
}

// exitCode maps a CoreError's Kind to the exit code table §6 defines.
// PermissionDenied intentionally collapses to syscall.EPERM, which is
// numerically 1 on Linux, the same value the generic/no-match case
// uses.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var cerr *rarerr.CoreError
	if !errors.As(err, &cerr) {
		return int(syscall.EFAULT)
	}
	switch cerr.Kind {
	case rarerr.InvalidArguments:
		return int(syscall.EINVAL)
	case rarerr.AuthenticationFailed:
		return int(syscall.EACCES)
	case rarerr.PermissionDenied:
		return int(syscall.EPERM)
	case rarerr.ExecutionFailed:
		return int(syscall.ENOENT)
	case rarerr.ConfigurationError, rarerr.InsufficientPrivileges, rarerr.SystemError:
		return int(syscall.EFAULT)
	default:
		return 1
	}
}
