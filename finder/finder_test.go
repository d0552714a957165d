package finder

import (
	"os/user"
	"strconv"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/LeChatP/RootAsRole-sub001/policy"
)

func currentCaller(t *testing.T) Caller {
	t.Helper()
	u, err := user.Current()
	if err != nil {
		t.Skip("no current user available")
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		t.Skip("non-numeric uid")
	}
	return Caller{UID: uint32(uid), Membership: mapset.NewThreadUnsafeSet[uint32]()}
}

func simpleConfig(t *testing.T, roleName, userName string, cmd string) *policy.Config {
	t.Helper()
	cfg := &policy.Config{
		Version: "3.0.0",
		Roles: []*policy.Role{
			{
				Name:   roleName,
				Actors: []policy.ActorEntry{{User: userName}},
				Tasks: []*policy.Task{
					{
						ID: policy.TaskID{Name: "t1"},
						Commands: policy.Commands{
							Default: policy.DefaultNone,
							Add:     []policy.Command{{Simple: cmd}},
						},
					},
				},
			},
		},
	}
	if err := policy.Link(cfg); err != nil {
		t.Fatalf("Link: %v", err)
	}
	return cfg
}

func TestFindBest_ExactMatch(t *testing.T) {
	caller := currentCaller(t)
	u, _ := user.LookupId(strconv.FormatUint(uint64(caller.UID), 10))
	cfg := simpleConfig(t, "admin", u.Username, "/bin/true")

	best, _, err := FindBest(cfg, caller, []string{"/bin/true"}, Filter{})
	if err != nil {
		t.Fatalf("FindBest: %v", err)
	}
	if best.RoleName != "admin" || best.TaskID.Name != "t1" {
		t.Errorf("best = %+v, want role admin/task t1", best)
	}
}

func TestFindBest_NoMatchingActor(t *testing.T) {
	caller := currentCaller(t)
	cfg := simpleConfig(t, "admin", "definitely-not-a-real-user-xyz", "/bin/true")

	_, _, err := FindBest(cfg, caller, []string{"/bin/true"}, Filter{})
	if err == nil {
		t.Fatal("expected NoMatch error")
	}
}

func TestFindBest_CommandMismatch(t *testing.T) {
	caller := currentCaller(t)
	u, _ := user.LookupId(strconv.FormatUint(uint64(caller.UID), 10))
	cfg := simpleConfig(t, "admin", u.Username, "/bin/false")

	_, _, err := FindBest(cfg, caller, []string{"/bin/true"}, Filter{})
	if err == nil {
		t.Fatal("expected NoMatch error for a command not in the allow-list")
	}
}

func TestFindBest_RoleFilter(t *testing.T) {
	caller := currentCaller(t)
	u, _ := user.LookupId(strconv.FormatUint(uint64(caller.UID), 10))
	cfg := simpleConfig(t, "admin", u.Username, "/bin/true")
	cfg.Roles = append(cfg.Roles, &policy.Role{
		Name:   "other",
		Actors: []policy.ActorEntry{{User: u.Username}},
		Tasks: []*policy.Task{{
			ID:       policy.TaskID{Name: "t2"},
			Commands: policy.Commands{Default: policy.DefaultNone, Add: []policy.Command{{Simple: "/bin/true"}}},
		}},
	})
	if err := policy.Link(cfg); err != nil {
		t.Fatalf("Link: %v", err)
	}

	best, _, err := FindBest(cfg, caller, []string{"/bin/true"}, Filter{Role: "other"})
	if err != nil {
		t.Fatalf("FindBest: %v", err)
	}
	if best.RoleName != "other" {
		t.Errorf("RoleName = %q, want other", best.RoleName)
	}
}

func TestFindBest_EmptyArgvIsInvalid(t *testing.T) {
	caller := currentCaller(t)
	cfg := &policy.Config{Version: "3.0.0"}
	_, _, err := FindBest(cfg, caller, nil, Filter{})
	if err == nil {
		t.Fatal("expected an error for empty argv")
	}
}

func TestFindBest_DefaultAllMatchesAnyCommand(t *testing.T) {
	caller := currentCaller(t)
	u, _ := user.LookupId(strconv.FormatUint(uint64(caller.UID), 10))
	cfg := &policy.Config{
		Version: "3.0.0",
		Roles: []*policy.Role{{
			Name:   "admin",
			Actors: []policy.ActorEntry{{User: u.Username}},
			Tasks: []*policy.Task{{
				ID:       policy.TaskID{Name: "t1"},
				Commands: policy.Commands{Default: policy.DefaultAll},
			}},
		}},
	}
	if err := policy.Link(cfg); err != nil {
		t.Fatalf("Link: %v", err)
	}

	best, _, err := FindBest(cfg, caller, []string{"/bin/anything"}, Filter{})
	if err != nil {
		t.Fatalf("FindBest: %v", err)
	}
	if best.ResolvedPath != "/bin/anything" {
		t.Errorf("ResolvedPath = %q, want /bin/anything", best.ResolvedPath)
	}
}

func TestFindBest_SubExcludesEvenUnderDefaultAll(t *testing.T) {
	caller := currentCaller(t)
	u, _ := user.LookupId(strconv.FormatUint(uint64(caller.UID), 10))
	cfg := &policy.Config{
		Version: "3.0.0",
		Roles: []*policy.Role{{
			Name:   "admin",
			Actors: []policy.ActorEntry{{User: u.Username}},
			Tasks: []*policy.Task{{
				ID: policy.TaskID{Name: "t1"},
				Commands: policy.Commands{
					Default: policy.DefaultAll,
					Sub:     []policy.Command{{Simple: "/bin/forbidden"}},
				},
			}},
		}},
	}
	if err := policy.Link(cfg); err != nil {
		t.Fatalf("Link: %v", err)
	}

	_, _, err := FindBest(cfg, caller, []string{"/bin/forbidden"}, Filter{})
	if err == nil {
		t.Fatal("expected the sub-list entry to exclude this command even under default=all")
	}
}

func TestFindBest_TieBreakPrefersEarlierRole(t *testing.T) {
	caller := currentCaller(t)
	u, _ := user.LookupId(strconv.FormatUint(uint64(caller.UID), 10))
	task := func(name string) *policy.Task {
		return &policy.Task{
			ID:       policy.TaskID{Name: name},
			Commands: policy.Commands{Default: policy.DefaultNone, Add: []policy.Command{{Simple: "/bin/true"}}},
		}
	}
	cfg := &policy.Config{
		Version: "3.0.0",
		Roles: []*policy.Role{
			{Name: "first", Actors: []policy.ActorEntry{{User: u.Username}}, Tasks: []*policy.Task{task("t1")}},
			{Name: "second", Actors: []policy.ActorEntry{{User: u.Username}}, Tasks: []*policy.Task{task("t1")}},
		},
	}
	if err := policy.Link(cfg); err != nil {
		t.Fatalf("Link: %v", err)
	}

	best, _, err := FindBest(cfg, caller, []string{"/bin/true"}, Filter{})
	if err != nil {
		t.Fatalf("FindBest: %v", err)
	}
	if best.RoleName != "first" {
		t.Errorf("RoleName = %q, want first (declaration-order tie-break)", best.RoleName)
	}
}
