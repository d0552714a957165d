package execplan

import (
	"testing"

	"github.com/LeChatP/RootAsRole-sub001/cap"
	"github.com/LeChatP/RootAsRole-sub001/envcalc"
	"github.com/LeChatP/RootAsRole-sub001/finder"
	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/policy/optstack"
)

func bestSettings(opts *policy.OptionsBlock, uid uint32, gids []uint32) finder.BestExecSettings {
	caps := cap.NewSet(cap.NET_BIND_SERVICE)
	return finder.BestExecSettings{
		RoleName:     "net-admin",
		ResolvedPath: "/usr/sbin/tcpdump",
		Argv:         []string{"/usr/sbin/tcpdump", "-i", "eth0"},
		TargetUID:    &uid,
		TargetGIDs:   gids,
		Capabilities: caps,
		Options:      optstack.New(nil, nil, nil, opts),
	}
}

func TestAssemble_DefaultsToClearAndDropBounding(t *testing.T) {
	uid := uint32(1001)
	plan := Assemble(bestSettings(&policy.OptionsBlock{}, uid, []uint32{1001}), nil)
	if plan.BoundingPolicy != BoundingClearAndDrop {
		t.Errorf("BoundingPolicy = %v, want clear_and_drop", plan.BoundingPolicy)
	}
	if plan.NoNewPrivs {
		t.Error("expected NoNewPrivs false without root=user")
	}
	if plan.SetUID == nil || *plan.SetUID != uid {
		t.Errorf("SetUID = %v, want %d", plan.SetUID, uid)
	}
	if plan.SetGID == nil || *plan.SetGID != 1001 {
		t.Errorf("SetGID = %v, want 1001", plan.SetGID)
	}
}

func TestAssemble_BoundingIgnoreLeavesBoundingSet(t *testing.T) {
	opts := &policy.OptionsBlock{Bounding: policy.BoundingIgnore}
	plan := Assemble(bestSettings(opts, 1001, nil), nil)
	if plan.BoundingPolicy != BoundingLeave {
		t.Errorf("BoundingPolicy = %v, want leave", plan.BoundingPolicy)
	}
}

func TestAssemble_RootUserSetsNoNewPrivs(t *testing.T) {
	opts := &policy.OptionsBlock{Root: policy.RootUser}
	plan := Assemble(bestSettings(opts, 1001, nil), nil)
	if !plan.NoNewPrivs {
		t.Error("expected NoNewPrivs true under root=user")
	}
}

func TestAssemble_CapabilitiesMirroredAcrossSets(t *testing.T) {
	plan := Assemble(bestSettings(&policy.OptionsBlock{}, 1001, nil), nil)
	if plan.Capabilities.Permitted.Len() != 1 || !plan.Capabilities.Permitted.Contains(cap.NET_BIND_SERVICE) {
		t.Errorf("Permitted = %v", plan.Capabilities.Permitted.Names())
	}
	if plan.Capabilities.Effective.Len() != plan.Capabilities.Permitted.Len() {
		t.Error("expected Effective to mirror Permitted absent launcher-specific info")
	}
	if plan.Capabilities.Ambient.Len() != plan.Capabilities.Permitted.Len() {
		t.Error("expected Ambient to mirror Permitted for file-cap-less execution")
	}
}

func TestAssemble_EnvironmentGoesThroughEnvcalc(t *testing.T) {
	opts := &policy.OptionsBlock{EnvBehavior: policy.EnvDelete, EnvSet: map[string]string{"FOO": "bar"}}
	callerEnv := envcalc.ParseEnviron([]string{"HOME=/root", "PATH=/usr/bin"})
	plan := Assemble(bestSettings(opts, 1001, nil), callerEnv)

	found := false
	for _, kv := range plan.Envp {
		if kv == "FOO=bar" {
			found = true
		}
		if kv == "HOME=/root" {
			t.Error("env_behavior=delete should not carry over caller's HOME")
		}
	}
	if !found {
		t.Error("expected env_set's FOO=bar to appear in the assembled plan's envp")
	}
}
