// Package cap implements the capability codec (component C1): parsing
// and formatting of Linux capability names, bitmask <-> set
// conversions, and bounding-set probing. It does not apply capabilities
// to a process — that is the launcher's job (spec §1); this package
// only probes the current process's bounding set. It has no
// capget/capset calls: storage and cmd/sr each issue their own.
package cap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sys/unix"
)

// Cap identifies a single Linux capability by its kernel-assigned
// number (from linux/capability.h).
type Cap int

// Capability constants, numbered per the schema v3 universe (0..=40).
const (
	CHOWN Cap = iota
	DAC_OVERRIDE
	DAC_READ_SEARCH
	FOWNER
	FSETID
	KILL
	SETGID
	SETUID
	SETPCAP
	LINUX_IMMUTABLE
	NET_BIND_SERVICE
	NET_BROADCAST
	NET_ADMIN
	NET_RAW
	IPC_LOCK
	IPC_OWNER
	SYS_MODULE
	SYS_RAWIO
	SYS_CHROOT
	SYS_PTRACE
	SYS_PACCT
	SYS_ADMIN
	SYS_BOOT
	SYS_NICE
	SYS_RESOURCE
	SYS_TIME
	SYS_TTY_CONFIG
	MKNOD
	LEASE
	AUDIT_WRITE
	AUDIT_CONTROL
	SETFCAP
	MAC_OVERRIDE
	MAC_ADMIN
	SYSLOG
	WAKE_ALARM
	BLOCK_SUSPEND
	AUDIT_READ
	PERFMON
	BPF
	CHECKPOINT_RESTORE
)

// lastKnown is the highest capability number this codec's universe
// covers (schema v3, §4.1).
const lastKnown = CHECKPOINT_RESTORE

var names = map[Cap]string{
	CHOWN:               "CAP_CHOWN",
	DAC_OVERRIDE:        "CAP_DAC_OVERRIDE",
	DAC_READ_SEARCH:     "CAP_DAC_READ_SEARCH",
	FOWNER:              "CAP_FOWNER",
	FSETID:              "CAP_FSETID",
	KILL:                "CAP_KILL",
	SETGID:              "CAP_SETGID",
	SETUID:              "CAP_SETUID",
	SETPCAP:             "CAP_SETPCAP",
	LINUX_IMMUTABLE:     "CAP_LINUX_IMMUTABLE",
	NET_BIND_SERVICE:    "CAP_NET_BIND_SERVICE",
	NET_BROADCAST:       "CAP_NET_BROADCAST",
	NET_ADMIN:           "CAP_NET_ADMIN",
	NET_RAW:             "CAP_NET_RAW",
	IPC_LOCK:            "CAP_IPC_LOCK",
	IPC_OWNER:           "CAP_IPC_OWNER",
	SYS_MODULE:          "CAP_SYS_MODULE",
	SYS_RAWIO:           "CAP_SYS_RAWIO",
	SYS_CHROOT:          "CAP_SYS_CHROOT",
	SYS_PTRACE:          "CAP_SYS_PTRACE",
	SYS_PACCT:           "CAP_SYS_PACCT",
	SYS_ADMIN:           "CAP_SYS_ADMIN",
	SYS_BOOT:            "CAP_SYS_BOOT",
	SYS_NICE:            "CAP_SYS_NICE",
	SYS_RESOURCE:        "CAP_SYS_RESOURCE",
	SYS_TIME:            "CAP_SYS_TIME",
	SYS_TTY_CONFIG:      "CAP_SYS_TTY_CONFIG",
	MKNOD:               "CAP_MKNOD",
	LEASE:               "CAP_LEASE",
	AUDIT_WRITE:         "CAP_AUDIT_WRITE",
	AUDIT_CONTROL:       "CAP_AUDIT_CONTROL",
	SETFCAP:             "CAP_SETFCAP",
	MAC_OVERRIDE:        "CAP_MAC_OVERRIDE",
	MAC_ADMIN:           "CAP_MAC_ADMIN",
	SYSLOG:              "CAP_SYSLOG",
	WAKE_ALARM:          "CAP_WAKE_ALARM",
	BLOCK_SUSPEND:       "CAP_BLOCK_SUSPEND",
	AUDIT_READ:          "CAP_AUDIT_READ",
	PERFMON:             "CAP_PERFMON",
	BPF:                 "CAP_BPF",
	CHECKPOINT_RESTORE:  "CAP_CHECKPOINT_RESTORE",
}

var byName = func() map[string]Cap {
	m := make(map[string]Cap, len(names))
	for c, n := range names {
		m[n] = c
	}
	return m
}()

// Name returns the canonical "CAP_<NAME>" form.
func (c Cap) Name() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("CAP_%d", int(c))
}

func (c Cap) String() string { return c.Name() }

// Parse resolves a capability name, accepted case-insensitively with or
// without the "CAP_" prefix (§4.1). It does not accept the "ALL"
// shorthand; callers distinguishing that token should check it before
// calling Parse (see ParseSet).
func Parse(raw string) (Cap, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if !strings.HasPrefix(upper, "CAP_") {
		upper = "CAP_" + upper
	}
	if c, ok := byName[upper]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("cap: unknown capability %q", raw)
}

// All returns the full known capability universe.
func All() []Cap {
	out := make([]Cap, 0, len(names))
	for c := range names {
		out = append(out, c)
	}
	return out
}

// Set is a collection of capabilities, backed by a hash set so
// union/intersect/complement read as set algebra rather than bit
// twiddling.
type Set struct {
	s mapset.Set[Cap]
}

// NewSet builds a Set from the given capabilities.
func NewSet(caps ...Cap) Set {
	return Set{s: mapset.NewThreadUnsafeSet(caps...)}
}

// ParseSet parses a list of names, honoring the "ALL" token (§4.1),
// which expands to the full known universe.
func ParseSet(names []string) (Set, error) {
	out := NewSet()
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), "ALL") {
			out = out.Union(Universe())
			continue
		}
		c, err := Parse(n)
		if err != nil {
			return Set{}, err
		}
		out.s.Add(c)
	}
	return out, nil
}

// Universe returns a Set containing every known capability.
func Universe() Set { return NewSet(All()...) }

// Contains reports whether c is a member.
func (s Set) Contains(c Cap) bool {
	if s.s == nil {
		return false
	}
	return s.s.Contains(c)
}

// Union returns the union of s and other.
func (s Set) Union(other Set) Set {
	a := emptyIfNil(s)
	b := emptyIfNil(other)
	return Set{s: a.s.Union(b.s)}
}

// Intersect returns the intersection of s and other.
func (s Set) Intersect(other Set) Set {
	a := emptyIfNil(s)
	b := emptyIfNil(other)
	return Set{s: a.s.Intersect(b.s)}
}

// Subtract returns s with other's members removed.
func (s Set) Subtract(other Set) Set {
	a := emptyIfNil(s)
	b := emptyIfNil(other)
	return Set{s: a.s.Difference(b.s)}
}

// Complement returns the complement of s bounded to the known universe.
func (s Set) Complement() Set {
	return Universe().Subtract(s)
}

// Len returns the number of members.
func (s Set) Len() int {
	if s.s == nil {
		return 0
	}
	return s.s.Cardinality()
}

// Slice returns the members in an unspecified order.
func (s Set) Slice() []Cap {
	if s.s == nil {
		return nil
	}
	return s.s.ToSlice()
}

// Names returns the canonical names of the members, sorted.
func (s Set) Names() []string {
	caps := s.Slice()
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = c.Name()
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func emptyIfNil(s Set) Set {
	if s.s == nil {
		return NewSet()
	}
	return s
}

// FromBitmask builds a Set from a 64-bit mask, truncating any bit
// beyond the known universe and reporting whether truncation occurred
// (§4.1: "bits beyond the known universe are truncated with a
// warning" — the warning is the caller's responsibility, e.g. via
// logging.Warn, so callers can decide the log shape).
func FromBitmask(mask uint64) (Set, bool) {
	out := NewSet()
	truncated := false
	for i := 0; i < 64; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if i > int(lastKnown) {
			truncated = true
			continue
		}
		out.s.Add(Cap(i))
	}
	return out, truncated
}

// Bitmask returns s encoded as a 64-bit mask.
func (s Set) Bitmask() uint64 {
	var mask uint64
	for _, c := range s.Slice() {
		mask |= 1 << uint(c)
	}
	return mask
}

var (
	lastCapOnce  sync.Once
	lastCapValue = int(lastKnown)
)

// LastSupportedCap returns the highest capability number the running
// kernel supports, detected dynamically so newer kernels with more
// capabilities than this codec's static universe still probe
// correctly (§4.1).
func LastSupportedCap() int {
	lastCapOnce.Do(func() {
		if data, err := os.ReadFile("/proc/sys/kernel/cap_last_cap"); err == nil {
			if val, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && val >= 0 {
				lastCapValue = val
				return
			}
		}
		for c := int(lastKnown); c <= 63; c++ {
			_, err := unix.PrctlRetInt(unix.PR_CAPBSET_READ, uintptr(c), 0, 0, 0)
			if err != nil {
				lastCapValue = c - 1
				return
			}
		}
		lastCapValue = 63
	})
	return lastCapValue
}

// ProbeBounding returns the capabilities currently present in this
// process's bounding set, by probing PR_CAPBSET_READ for every
// capability up to LastSupportedCap (§2 C1 "bounding-set probing").
func ProbeBounding() Set {
	out := NewSet()
	last := LastSupportedCap()
	for c := 0; c <= last; c++ {
		ret, err := unix.PrctlRetInt(unix.PR_CAPBSET_READ, uintptr(c), 0, 0, 0)
		if err == nil && ret == 1 {
			out.s.Add(Cap(c))
		}
	}
	return out
}
