package policy

import "testing"

func buildQueryConfig() *Config {
	cfg := &Config{
		Version: "3.0.0",
		Storage: StorageDescriptor{Method: StorageJSON},
		Roles: []*Role{
			{
				Name:   "net-admin",
				Actors: []ActorEntry{{User: "alice"}, {Groups: []string{"wheel", "net"}}},
				Tasks: []*Task{
					{ID: TaskID{Name: "capture"}, Purpose: "packet capture"},
					{ID: TaskID{Positional: true}},
				},
			},
		},
	}
	_ = Link(cfg)
	return cfg
}

func TestRoleNames(t *testing.T) {
	cfg := buildQueryConfig()
	names := cfg.RoleNames()
	if len(names) != 1 || names[0] != "net-admin" {
		t.Errorf("RoleNames = %v", names)
	}
}

func TestTaskSummaries(t *testing.T) {
	role := buildQueryConfig().RoleByName("net-admin")
	summaries := role.TaskSummaries()
	if len(summaries) != 2 {
		t.Fatalf("len(TaskSummaries) = %d, want 2", len(summaries))
	}
	if summaries[0].String() != "capture" {
		t.Errorf("summaries[0].String() = %q, want capture", summaries[0].String())
	}
	if summaries[1].String() != "#1" {
		t.Errorf("summaries[1].String() = %q, want #1", summaries[1].String())
	}
}

func TestActorEntryString(t *testing.T) {
	cases := []struct {
		entry ActorEntry
		want  string
	}{
		{ActorEntry{User: "alice"}, "user:alice"},
		{ActorEntry{Groups: []string{"wheel"}}, "group:wheel"},
		{ActorEntry{Groups: []string{"wheel", "net"}}, "group:wheel&net"},
		{ActorEntry{Raw: "unrecognized"}, "unrecognized"},
	}
	for _, tc := range cases {
		if got := tc.entry.String(); got != tc.want {
			t.Errorf("ActorEntry%+v.String() = %q, want %q", tc.entry, got, tc.want)
		}
	}
}

func TestConfigActors(t *testing.T) {
	cfg := buildQueryConfig()

	actors, err := cfg.Actors("net-admin", "")
	if err != nil {
		t.Fatalf("Actors: %v", err)
	}
	if len(actors) != 2 {
		t.Errorf("len(actors) = %d, want 2", len(actors))
	}

	if _, err := cfg.Actors("net-admin", "capture"); err != nil {
		t.Errorf("Actors with valid task filter: %v", err)
	}

	if _, err := cfg.Actors("net-admin", "nonexistent"); err == nil {
		t.Error("expected error for unknown task filter")
	}

	if _, err := cfg.Actors("nonexistent", ""); err == nil {
		t.Error("expected error for unknown role")
	}
}
