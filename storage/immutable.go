package storage

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/LeChatP/RootAsRole-sub001/cap"
)

// GetImmutable reports whether the file at path carries the ext2/4
// FS_IMMUTABLE_FL attribute.
func GetImmutable(path string) (bool, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return false, err
	}
	defer unix.Close(fd)

	flags, err := unix.IoctlGetInt(fd, unix.FS_IOC_GETFLAGS)
	if err != nil {
		return false, err
	}
	return flags&unix.FS_IMMUTABLE_FL != 0, nil
}

// SetImmutable sets or clears the FS_IMMUTABLE_FL attribute on path,
// raising CAP_LINUX_IMMUTABLE (and CAP_FOWNER, needed when the caller
// doesn't already own the file) into the effective set for the
// duration of the ioctl and restoring the prior effective set again
// immediately after.
func SetImmutable(path string, immutable bool) error {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	flags, err := unix.IoctlGetInt(fd, unix.FS_IOC_GETFLAGS)
	if err != nil {
		return err
	}
	if immutable {
		flags |= unix.FS_IMMUTABLE_FL
	} else {
		flags &^= unix.FS_IMMUTABLE_FL
	}

	restore, err := raiseCaps(cap.NewSet(cap.LINUX_IMMUTABLE, cap.FOWNER))
	if err != nil {
		return fmt.Errorf("storage: raise capabilities for immutable toggle: %w", err)
	}
	defer restore()

	return unix.IoctlSetInt(fd, unix.FS_IOC_SETFLAGS, flags)
}

// capHeader and capData mirror the kernel's cap_user_header_t /
// cap_user_data_t layout for the capget/capset syscalls, the same
// shape the teacher's linux.ApplyCapabilities/GetCapabilities use.
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

// raiseCaps reads the process's current capability data via
// SYS_CAPGET, sets the given capabilities in the effective mask via
// SYS_CAPSET, and returns a function that restores the prior effective
// mask. This only moves bits from permitted into effective; it cannot
// grant a capability that isn't already permitted (e.g. via a file
// capability on the installed `sr`/`chsr` binary).
func raiseCaps(caps cap.Set) (restore func(), err error) {
	header := capHeader{version: capabilityVersion3, pid: 0}
	var data [2]capData

	if _, _, errno := syscall.Syscall(syscall.SYS_CAPGET,
		uintptr(unsafe.Pointer(&header)), uintptr(unsafe.Pointer(&data[0])), 0); errno != 0 {
		return nil, errno
	}

	before := data
	for _, c := range caps.Slice() {
		idx := int(c) / 32
		bit := uint32(1) << (uint(c) % 32)
		if idx < 2 {
			data[idx].effective |= bit
		}
	}

	applyHeader := capHeader{version: capabilityVersion3, pid: 0}
	if _, _, errno := syscall.Syscall(syscall.SYS_CAPSET,
		uintptr(unsafe.Pointer(&applyHeader)), uintptr(unsafe.Pointer(&data[0])), 0); errno != 0 {
		return nil, errno
	}

	return func() {
		restoreHeader := capHeader{version: capabilityVersion3, pid: 0}
		syscall.Syscall(syscall.SYS_CAPSET,
			uintptr(unsafe.Pointer(&restoreHeader)), uintptr(unsafe.Pointer(&before[0])), 0)
	}, nil
}
