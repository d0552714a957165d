package editor

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/storage"
)

func adminConfig() *policy.Config {
	cfg := &policy.Config{
		Version: "3.0.0",
		Storage: policy.StorageDescriptor{Method: policy.StorageJSON, Path: "/etc/rar/policy.json"},
		Options: &policy.OptionsBlock{Extra: map[string]any{"admin_roles": []any{"security"}}},
		Roles: []*policy.Role{
			{Name: "security"},
			{
				Name: "net-admin",
				SSD:  []string{"db-admin"},
				Tasks: []*policy.Task{
					{ID: policy.TaskID{Name: "capture"}},
				},
			},
			{Name: "db-admin"},
		},
	}
	if err := policy.Link(cfg); err != nil {
		panic(err)
	}
	return cfg
}

func newTestSession(cfg *policy.Config) *Session {
	backend := &storage.Backend{Fs: afero.NewMemMapFs()}
	return NewSession(backend, cfg.Storage, cfg)
}

func TestSession_BeginEditSave(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)

	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if s.State() != Editing {
		t.Fatalf("State = %v, want Editing", s.State())
	}

	if _, err := s.CreateRole([]string{"security"}, "auditor"); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if cfg.RoleByName("auditor") != nil {
		t.Error("live document mutated before Save")
	}

	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.State() != Browsing {
		t.Fatalf("State after Save = %v, want Browsing", s.State())
	}
	if s.Document().RoleByName("auditor") == nil {
		t.Error("expected auditor role to persist after Save")
	}
}

func TestSession_Abort_DiscardsDraft(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)

	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.CreateRole([]string{"security"}, "throwaway"); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if s.State() != Browsing {
		t.Fatalf("State after Abort = %v, want Browsing", s.State())
	}
	if s.Document().RoleByName("throwaway") != nil {
		t.Error("expected aborted edit to never reach the live document")
	}
}

func TestSession_MutationsRequireEditing(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)

	if _, err := s.CreateRole([]string{"security"}, "auditor"); err == nil {
		t.Error("expected CreateRole to fail outside the Editing state")
	}
	if err := s.Save(); err == nil {
		t.Error("expected Save to fail outside the Editing state")
	}
	if err := s.Abort(); err == nil {
		t.Error("expected Abort to fail outside the Editing state")
	}
}

func TestSession_NonAdminCallerRefused(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.CreateRole([]string{"net-admin"}, "auditor"); err == nil {
		t.Error("expected non-admin caller to be refused")
	}
}

func TestSession_CreateRole_DuplicateRejected(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)
	_ = s.Begin()
	if _, err := s.CreateRole([]string{"security"}, "net-admin"); err == nil {
		t.Error("expected duplicate role name to be rejected")
	}
}

func TestSession_DeleteRole(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)
	_ = s.Begin()
	if err := s.DeleteRole([]string{"security"}, "net-admin"); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}
	if s.Document().RoleByName("net-admin") != nil {
		t.Error("expected net-admin to be removed from the draft")
	}
}

func TestSession_GrantAndRevoke(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)
	_ = s.Begin()

	actor := policy.ActorEntry{User: "alice"}
	if err := s.Grant([]string{"security"}, "net-admin", []policy.ActorEntry{actor}); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	role := s.Document().RoleByName("net-admin")
	if !actorGrantedRole(role, actor) {
		t.Fatal("expected alice to be granted net-admin")
	}

	if err := s.Revoke([]string{"security"}, "net-admin", []policy.ActorEntry{actor}); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if actorGrantedRole(role, actor) {
		t.Error("expected alice to no longer be granted net-admin")
	}
}

func TestSession_Grant_RefusesSSDViolation(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)
	_ = s.Begin()

	actor := policy.ActorEntry{User: "bob"}
	if err := s.Grant([]string{"security"}, "db-admin", []policy.ActorEntry{actor}); err != nil {
		t.Fatalf("Grant db-admin: %v", err)
	}
	if err := s.Grant([]string{"security"}, "net-admin", []policy.ActorEntry{actor}); err == nil {
		t.Error("expected granting net-admin to bob to violate SSD with db-admin")
	}
}

func TestSession_AddAndDeleteTask(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)
	_ = s.Begin()

	newTask := &policy.Task{ID: policy.TaskID{Name: "restart"}}
	if err := s.AddTask([]string{"security"}, "net-admin", newTask); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if s.Document().RoleByName("net-admin").TaskByName("restart") == nil {
		t.Fatal("expected restart task to be added")
	}

	if err := s.DeleteTask([]string{"security"}, "net-admin", policy.TaskID{Name: "restart"}); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if s.Document().RoleByName("net-admin").TaskByName("restart") != nil {
		t.Error("expected restart task to be removed")
	}
}

func TestSession_AddTask_DuplicateNameRejected(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)
	_ = s.Begin()
	if err := s.AddTask([]string{"security"}, "net-admin", &policy.Task{ID: policy.TaskID{Name: "capture"}}); err == nil {
		t.Error("expected duplicate task name to be rejected")
	}
}

func TestSession_SetOption_Global(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)
	_ = s.Begin()
	if err := s.SetOption([]string{"security"}, Scope{Level: ScopeGlobal}, "root", "user"); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if s.Document().Options.Root != policy.RootUser {
		t.Errorf("Options.Root = %v, want user", s.Document().Options.Root)
	}
}

func TestSession_SetOption_Role(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)
	_ = s.Begin()
	scope := Scope{Level: ScopeRole, Role: "net-admin"}
	if err := s.SetOption([]string{"security"}, scope, "bounding", "ignore"); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	role := s.Document().RoleByName("net-admin")
	if role.Options == nil || role.Options.Bounding != policy.BoundingIgnore {
		t.Errorf("Options.Bounding = %+v, want ignore", role.Options)
	}
}

func TestSession_SetOption_Task(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)
	_ = s.Begin()
	scope := Scope{Level: ScopeTask, Role: "net-admin", Task: policy.TaskID{Name: "capture"}}
	if err := s.SetOption([]string{"security"}, scope, "authentication", "skip"); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	task := s.Document().RoleByName("net-admin").TaskByName("capture")
	if task.Options == nil || task.Options.Authentication != policy.AuthSkip {
		t.Errorf("Options.Authentication = %+v, want skip", task.Options)
	}
}

func TestSession_SetOption_UnknownKeyGoesToExtra(t *testing.T) {
	cfg := adminConfig()
	s := newTestSession(cfg)
	_ = s.Begin()
	if err := s.SetOption([]string{"security"}, Scope{Level: ScopeGlobal}, "future_flag", "on"); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if s.Document().Options.Extra["future_flag"] != "on" {
		t.Error("expected unknown option key to be preserved in Extra")
	}
}

func TestIsAdmin_InheritedThroughParents(t *testing.T) {
	cfg := adminConfig()
	cfg.Roles = append(cfg.Roles, &policy.Role{Name: "jr-security", Parents: []string{"security"}})
	_ = policy.Link(cfg)

	if !IsAdmin(cfg, []string{"jr-security"}) {
		t.Error("expected an admin role's child to inherit admin status")
	}
	if IsAdmin(cfg, []string{"net-admin"}) {
		t.Error("expected a non-admin role to be refused")
	}
}
