// Command chsr is the policy editor CLI: the read-only "list" surface
// over policy/query.go and the mutating role/task/grant/option surface
// over editor.Session's Browsing/Editing/Saving state machine. Its
// subcommand tree follows the teacher's cmd/root.go pattern (one
// persistent root command, leaf subcommands registered in their own
// init, a RunE per leaf) generalized from "one container subcommand
// per lifecycle verb" to "one policy-editing verb per subcommand".
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LeChatP/RootAsRole-sub001/actor"
	"github.com/LeChatP/RootAsRole-sub001/editor"
	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/storage"
)

const defaultPolicyPath = "/etc/security/rootasrole.json"

var flagPolicyPath string

var rootCmd = &cobra.Command{
	Use:           "chsr",
	Short:         "inspect and edit the rootasrole policy document",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPolicyPath, "policy", defaultPolicyPath, "path to the policy document")
	rootCmd.AddCommand(listCmd, roleCmd, taskCmd, optionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// openEditor loads the policy document and returns a Session over it,
// plus the roles the invoking uid is granted (the admin check
// editor.Session.requireAdmin consults).
func openEditor() (*editor.Session, []string, error) {
	backend := storage.NewBackend()
	desc := policy.StorageDescriptor{Method: policy.StorageJSON, Path: flagPolicyPath}
	cfg, err := backend.Load(desc)
	if err != nil {
		return nil, nil, err
	}
	roles := callerRoles(cfg, uint32(os.Getuid()))
	return editor.NewSession(backend, desc, cfg), roles, nil
}

// callerRoles lists every role whose actors include the caller,
// mirroring finder.actorMatch's membership check without the scoring
// half that only the launcher needs.
func callerRoles(cfg *policy.Config, uid uint32) []string {
	membership := actor.Membership(uid)
	var out []string
	for _, role := range cfg.Roles {
		for _, entry := range role.Actors {
			if toActor(entry).Matches(uid, membership) {
				out = append(out, role.Name)
				break
			}
		}
	}
	return out
}

// toActor converts a policy document's serialized ActorEntry into the
// actor package's tagged Actor variant, the same conversion
// finder.toActor performs for match scoring.
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

func parseActors(users []string, groups []string) []policy.ActorEntry {
	out := make([]policy.ActorEntry, 0, len(users)+len(groups))
	for _, u := range users {
		out = append(out, policy.ActorEntry{User: u})
	}
	for _, g := range groups {
		out = append(out, policy.ActorEntry{Groups: strings.Split(g, "&")})
	}
	return out
}

func parseOptionValue(key, raw string) any {
	switch key {
	case "env_whitelist", "env_blacklist", "env_checklist":
		return strings.Split(raw, ",")
	case "env_set":
		out := map[string]string{}
		for _, pair := range strings.Split(raw, ",") {
			k, v, ok := strings.Cut(pair, "=")
			if ok {
				out[k] = v
			}
		}
		return out
	case "timeout":
		parts := strings.Split(raw, ":")
		t := policy.Timeout{Type: policy.TimestampTTY, Duration: raw}
		if len(parts) >= 2 {
			t.Type = policy.TimestampType(parts[0])
			t.Duration = parts[1]
		}
		if len(parts) >= 3 {
			if n, err := strconv.ParseUint(parts[2], 10, 32); err == nil {
				t.MaxUsage = uint32(n)
			}
		}
		return t
	default:
		return raw
	}
}

// taskIDFromFlags builds a TaskID from a --task name flag, falling
// back to a positional index when name is empty.
func taskIDFromFlags(name string, index int) policy.TaskID {
	if name == "" {
		return policy.TaskID{Positional: true, Index: index}
	}
	return policy.TaskID{Name: name}
}
