package main

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/LeChatP/RootAsRole-sub001/cap"
	"github.com/LeChatP/RootAsRole-sub001/execplan"
)

// capHeader/capData mirror the raw capget/capset argument shape the
// kernel expects (linux/capability.h), the same struct layout the
// teacher's linux/capabilities.go builds by hand rather than through a
// higher-level wrapper.
type capHeader struct {
	version uint32
	pid     int32
}

type capData struct {
	effective   uint32
	permitted   uint32
	inheritable uint32
}

const capabilityVersion3 = 0x20080522

const (
	prCapAmbient      = 47
	prCapAmbientRaise = 2
	prCapbsetDrop     = 24
	prSetNoNewPrivs   = 38
)

// applyAndExec performs the kernel-required setgroups -> setgid ->
// setuid -> cap_set -> prctl(NO_NEW_PRIVS) -> exec sequence §4.13
// hands to the launcher, then replaces the current process image. It
// never returns on success.
func applyAndExec(plan execplan.Plan) error {
	if len(plan.SetSupplementaryGIDs) > 0 {
		gids := make([]int, len(plan.SetSupplementaryGIDs))
		for i, g := range plan.SetSupplementaryGIDs {
			gids[i] = int(g)
		}
		if err := unix.Setgroups(gids); err != nil {
			return &applyError{"setgroups", err}
		}
	}
	if plan.SetGID != nil {
		gid := int(*plan.SetGID)
		if err := unix.Setresgid(gid, gid, gid); err != nil {
			return &applyError{"setgid", err}
		}
	}
	if plan.SetUID != nil {
		uid := int(*plan.SetUID)
		if err := unix.Setresuid(uid, uid, uid); err != nil {
			return &applyError{"setuid", err}
		}
	}
	if err := applyCapabilities(plan); err != nil {
		return err
	}
	if plan.NoNewPrivs {
		if _, _, errno := syscall.Syscall(syscall.SYS_PRCTL, prSetNoNewPrivs, 1, 0); errno != 0 {
			return &applyError{"prctl(no_new_privs)", errno}
		}
	}

	return syscall.Exec(plan.Path, plan.Argv, plan.Envp)
}

// applyCapabilities clears the bounding set down to the permitted set
// (unless the task's bounding policy says to leave it alone), sets the
// three process capability sets with one capset call, then raises any
// ambient capabilities so they survive exec without file capabilities
// on the target binary.
func applyCapabilities(plan execplan.Plan) error {
	if plan.BoundingPolicy == execplan.BoundingClearAndDrop {
		for _, c := range cap.All() {
			if plan.Capabilities.Permitted.Contains(c) {
				continue
			}
			syscall.Syscall(syscall.SYS_PRCTL, prCapbsetDrop, uintptr(c), 0)
		}
	}

	header := capHeader{version: capabilityVersion3, pid: 0}
	var data [2]capData
	setBits(&data, plan.Capabilities.Effective, func(d *capData, bit uint32) { d.effective |= bit })
	setBits(&data, plan.Capabilities.Permitted, func(d *capData, bit uint32) { d.permitted |= bit })
	setBits(&data, plan.Capabilities.Inheritable, func(d *capData, bit uint32) { d.inheritable |= bit })

	if _, _, errno := syscall.Syscall(syscall.SYS_CAPSET,
		uintptr(unsafe.Pointer(&header)), uintptr(unsafe.Pointer(&data[0])), 0); errno != 0 {
		return &applyError{"capset", errno}
	}

	for _, c := range plan.Capabilities.Ambient.Slice() {
		if _, _, errno := syscall.Syscall(syscall.SYS_PRCTL, prCapAmbient, prCapAmbientRaise, uintptr(c)); errno != 0 {
			return &applyError{"prctl(cap_ambient_raise " + c.Name() + ")", errno}
		}
	}
	return nil
}

func setBits(data *[2]capData, caps cap.Set, set func(*capData, uint32)) {
	for _, c := range caps.Slice() {
		idx := int(c) / 32
		bit := uint32(1) << (uint(c) % 32)
		if idx < len(data) {
			set(&data[idx], bit)
		}
	}
}

type applyError struct {
	op  string
	err error
}

func (e *applyError) Error() string { return "sr: " + e.op + ": " + e.err.Error() }
func (e *applyError) Unwrap() error { return e.err }
