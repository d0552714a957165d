// Package execplan implements the exec plan assembler (component
// C13): gathering everything a launcher needs into one
// language-neutral struct, the same "collect every namespace/mount/cap
// decision into one opaque value before acting" shape the teacher's
// container.Create uses to build a child process's SysProcAttr and
// environment before calling cmd.Start.
package execplan

import (
	"github.com/LeChatP/RootAsRole-sub001/cap"
	"github.com/LeChatP/RootAsRole-sub001/envcalc"
	"github.com/LeChatP/RootAsRole-sub001/finder"
	"github.com/LeChatP/RootAsRole-sub001/policy"
)

// BoundingPolicy tells the launcher how to treat the capability
// bounding set before exec (§4.13).
type BoundingPolicy string

const (
	// BoundingClearAndDrop clears the bounding set then drops every
	// capability not in the requested set.
	BoundingClearAndDrop BoundingPolicy = "clear_and_drop"
	// BoundingLeave makes no change to the inherited bounding set.
	BoundingLeave BoundingPolicy = "leave"
)

// Capabilities mirrors §4.13's four named capability sets a launcher
// must apply, in the kernel-required capset call's field shape.
type Capabilities struct {
	Permitted   cap.Set
	Inheritable cap.Set
	// Effective depends on the launcher (whether it execs with file
	// capabilities present); the assembler leaves it equal to
	// Permitted, which is the launcher's best default absent any
	// file-capability information of its own.
	Effective cap.Set
	// Ambient lets the requested set survive exec without file
	// capabilities on the target binary (§4.13 "for file-cap-less
	// execution").
	Ambient cap.Set
}

// Plan is the language-neutral result of assembling a finder match
// into something a launcher can execute (§4.13).
type Plan struct {
	Path string
	Argv []string
	Envp []string

	SetUID               *uint32
	SetGID               *uint32
	SetSupplementaryGIDs []uint32

	Capabilities   Capabilities
	BoundingPolicy BoundingPolicy
	NoNewPrivs     bool
}

// Assemble combines a finder match with the caller's environment into
// a Plan (§4.13). callerEnv is the caller's raw environment (e.g.
// os.Environ()), already parsed by envcalc.ParseEnviron.
func Assemble(best finder.BestExecSettings, callerEnv []envcalc.Entry) Plan {
	result := envcalc.Calculate(best.Options, callerEnv)
	envp := result.AsSlice()

	var setGID *uint32
	if len(best.TargetGIDs) > 0 {
		g := best.TargetGIDs[0]
		setGID = &g
	}

	bounding := BoundingClearAndDrop
	if b := best.Options.Bounding(); b.Found && b.Value == policy.BoundingIgnore {
		bounding = BoundingLeave
	}

	noNewPrivs := false
	if r := best.Options.Root(); r.Found && r.Value == policy.RootUser {
		noNewPrivs = true
	}

	return Plan{
		Path: best.ResolvedPath,
		Argv: best.Argv,
		Envp: envp,

		SetUID:               best.TargetUID,
		SetGID:               setGID,
		SetSupplementaryGIDs: best.TargetGIDs,

		Capabilities: Capabilities{
			Permitted:   best.Capabilities,
			Inheritable: best.Capabilities,
			Effective:   best.Capabilities,
			Ambient:     best.Capabilities,
		},
		BoundingPolicy: bounding,
		NoNewPrivs:     noNewPrivs,
	}
}
