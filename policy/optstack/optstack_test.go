package optstack

import (
	"testing"

	"github.com/LeChatP/RootAsRole-sub001/policy"
)

func strp(s string) *string { return &s }

func TestPath_InnermostWins(t *testing.T) {
	global := &policy.OptionsBlock{Path: strp("/global/path")}
	task := &policy.OptionsBlock{Path: strp("/task/path")}
	s := New(nil, global, nil, task)

	r := s.Path()
	if !r.Found || r.Value != "/task/path" || r.Level != LevelTask {
		t.Errorf("Path() = %+v, want task-level /task/path", r)
	}
}

func TestPath_FallsThroughWhenUnset(t *testing.T) {
	global := &policy.OptionsBlock{Path: strp("/global/path")}
	s := New(nil, global, nil, nil)

	r := s.Path()
	if !r.Found || r.Value != "/global/path" || r.Level != LevelGlobal {
		t.Errorf("Path() = %+v, want global-level /global/path", r)
	}
}

func TestEnvBehavior_InheritSkipsLevel(t *testing.T) {
	global := &policy.OptionsBlock{EnvBehavior: policy.EnvDelete}
	role := &policy.OptionsBlock{EnvBehavior: policy.EnvInherit}
	task := &policy.OptionsBlock{EnvBehavior: policy.EnvInherit}
	s := New(nil, global, role, task)

	r := s.EnvBehavior()
	if !r.Found || r.Value != policy.EnvDelete || r.Level != LevelGlobal {
		t.Errorf("EnvBehavior() = %+v, want global-level delete", r)
	}
}

func TestEnvBehavior_NoneDeclaredAnywhere(t *testing.T) {
	s := New(nil, nil, nil, nil)
	r := s.EnvBehavior()
	if r.Found {
		t.Errorf("expected not found, got %+v", r)
	}
}

func TestTimeout_WholeStructNotFieldByField(t *testing.T) {
	global := &policy.OptionsBlock{Timeout: &policy.Timeout{Type: policy.TimestampTTY, Duration: "00:15:00", MaxUsage: 1}}
	task := &policy.OptionsBlock{Timeout: &policy.Timeout{Type: policy.TimestampUID, Duration: "01:00:00"}}
	s := New(nil, global, nil, task)

	r := s.Timeout()
	if !r.Found || r.Value.Type != policy.TimestampUID || r.Value.Duration != "01:00:00" {
		t.Errorf("Timeout() = %+v, want the task's whole struct", r.Value)
	}
}

func TestMonotonicity_DeclaringAtTaskOverridesOuterLevels(t *testing.T) {
	defaults := &policy.OptionsBlock{Root: policy.RootUser}
	global := &policy.OptionsBlock{Root: policy.RootUser}
	role := &policy.OptionsBlock{Root: policy.RootUser}
	task := &policy.OptionsBlock{Root: policy.RootPrivileged}
	s := New(defaults, global, role, task)

	r := s.Root()
	if r.Value != policy.RootPrivileged || r.Level != LevelTask {
		t.Errorf("Root() = %+v, want task-level privileged", r)
	}

	// removing the task's declaration makes the role's value visible
	s2 := New(defaults, global, role, nil)
	r2 := s2.Root()
	if r2.Value != policy.RootUser || r2.Level != LevelRole {
		t.Errorf("Root() after removal = %+v, want role-level user", r2)
	}
}
