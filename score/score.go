// Package score implements the scoring lattice (component C6): a
// totally ordered tuple of match-quality grades used to pick, among
// every (role, task) pair that matches a caller and command, the one
// that grants the least privilege. Lower always means "more specific,
// less privileged, preferred" — the same convention the original
// Rust scoring module uses, translated here into plain comparable Go
// structs with a Less method instead of derived Ord.
package score

import (
	"github.com/LeChatP/RootAsRole-sub001/cap"
)

// ActorMatchKind distinguishes how an Actor matched the caller.
type ActorMatchKind int

const (
	ActorUserMatch ActorMatchKind = iota
	ActorGroupMatch
	ActorNoMatch
)

// ActorMatchMin grades how an actor matched: a direct user match beats
// any group match, and among group matches a smaller AND-set is more
// specific and therefore preferred (§4.7 "user match beats group
// match").
type ActorMatchMin struct {
	Kind       ActorMatchKind
	GroupCount int
}

// Matching reports whether this grade represents an actual match.
func (a ActorMatchMin) Matching() bool { return a.Kind != ActorNoMatch }

// Less reports whether a is strictly better (lower) than other.
func (a ActorMatchMin) Less(other ActorMatchMin) bool {
	if a.Kind != other.Kind {
		return a.Kind < other.Kind
	}
	return a.GroupCount < other.GroupCount
}

// Better reports whether a is a matching grade strictly better than other.
func (a ActorMatchMin) Better(other ActorMatchMin) bool {
	return (a.Matching() && !other.Matching()) || (a.Matching() && a.Less(other))
}

// CmdOrder is a bitset of edge-case penalties accrued while matching a
// command (§4.5): each bit makes the match less specific, so the
// bitset's numeric value is compared directly — 0 (an exact match) is
// always the best possible CmdOrder.
type CmdOrder uint32

const (
	WildcardPath     CmdOrder = 1 << iota // path pattern used a single-segment wildcard
	RegexArgs                             // argv matched via a non-trivial regex
	FullRegexArgs                         // argv pattern was the catch-all ".*"
	FullWildcardPath                      // path pattern used "**"
)

// CmdMin grades how a command matched: whether it matched at all, and
// which edge-case penalties the match accrued.
type CmdMin struct {
	Status bool
	Order  CmdOrder
}

// Matching reports whether this grade represents an actual match.
func (c CmdMin) Matching() bool { return c.Status }

// UnionOrder accumulates additional CmdOrder penalty bits.
func (c *CmdMin) UnionOrder(o CmdOrder) { c.Order |= o }

// Less reports whether c is strictly better (lower CmdOrder) than other.
func (c CmdMin) Less(other CmdMin) bool { return c.Order < other.Order }

// Better reports whether c is a matching grade strictly better than other.
func (c CmdMin) Better(other CmdMin) bool {
	return (c.Matching() && !other.Matching()) || (c.Matching() && c.Less(other))
}

// CapsKind orders capability grants from least to most dangerous.
type CapsKind int

const (
	CapsUndefined CapsKind = iota
	CapsNone
	CapsNoAdmin
	CapsAdmin
	CapsAll
)

// CapsMin grades a task's granted capability set by how dangerous it
// is: no caps beats some non-admin caps beats any admin cap beats the
// full universe. Within CapsNoAdmin/CapsAdmin, fewer capabilities is
// more specific and preferred.
type CapsMin struct {
	Kind  CapsKind
	Count int
}

// Less reports whether c is strictly better (less dangerous) than other.
func (c CapsMin) Less(other CapsMin) bool {
	if c.Kind != other.Kind {
		return c.Kind < other.Kind
	}
	return c.Count < other.Count
}

// adminCaps are the capabilities treated as admin-equivalent: granting
// either lets the holder rewrite its own security context, so both
// count toward CapsAdmin rather than CapsNoAdmin (resolves the
// capability-admin-equivalence question — CAP_SETFCAP can plant
// file capabilities that regrant anything CAP_SYS_ADMIN could).
var adminCaps = cap.NewSet(cap.SYS_ADMIN, cap.SETFCAP)

// Classify grades a capability set granted by a task.
func Classify(set cap.Set) CapsMin {
	if set.Len() == 0 {
		return CapsMin{Kind: CapsNone}
	}
	if set.Len() >= len(cap.All()) {
		return CapsMin{Kind: CapsAll}
	}
	if set.Intersect(adminCaps).Len() > 0 {
		return CapsMin{Kind: CapsAdmin, Count: set.Len()}
	}
	return CapsMin{Kind: CapsNoAdmin, Count: set.Len()}
}

// SetuidMin grades a setuid selector: picking a non-root target uid is
// always preferred over root.
type SetuidMin struct {
	IsRoot bool
}

// Less reports whether s is strictly better than other.
func (s SetuidMin) Less(other SetuidMin) bool { return !s.IsRoot && other.IsRoot }

// SetgidMin grades a setgid selector: non-root beats root, and fewer
// target groups is more specific.
type SetgidMin struct {
	IsRoot    bool
	NumGroups int
}

// Less reports whether s is strictly better than other.
func (s SetgidMin) Less(other SetgidMin) bool {
	if s.IsRoot != other.IsRoot {
		return !s.IsRoot
	}
	return s.NumGroups < other.NumGroups
}

// SetUserMin grades the combined setuid/setgid requirement of a task.
// Per the underlying option ordering, a task that declares no identity
// change at all (nil) outranks any task that declares one.
type SetUserMin struct {
	UID    *SetuidMin
	GID    *SetgidMin
}

// Less reports whether s is strictly better than other.
func (s SetUserMin) Less(other SetUserMin) bool {
	switch {
	case s.UID == nil && other.UID != nil:
		return true
	case s.UID != nil && other.UID == nil:
		return false
	case s.UID != nil && other.UID != nil && *s.UID != *other.UID:
		return s.UID.Less(*other.UID)
	}
	switch {
	case s.GID == nil && other.GID != nil:
		return true
	case s.GID != nil && other.GID == nil:
		return false
	case s.GID != nil && other.GID != nil:
		return s.GID.Less(*other.GID)
	default:
		return false
	}
}

// SecurityMin is a bitset of relaxations a task's resolved options
// apply relative to the hardened default — each bit makes the
// execution context more permissive, so lower is always better.
type SecurityMin uint32

const (
	DisableBounding SecurityMin = 1 << iota
	EnableRoot
	KeepEnv
	KeepPath
	KeepUnsafePath
	SkipAuth
)

// Score is the full totally ordered tuple used to pick the
// least-privileged sufficient match among candidate (role, task) pairs
// (§4.6).
type Score struct {
	UserMin     ActorMatchMin
	CmdMin      CmdMin
	CapsMin     CapsMin
	SetUserMin  SetUserMin
	SecurityMin SecurityMin
}

// UserMatching reports whether the actor grade represents a match.
func (s Score) UserMatching() bool { return s.UserMin.Matching() }

// CommandMatching reports whether the command grade represents a match.
func (s Score) CommandMatching() bool { return s.CmdMin.Matching() }

// FullyMatching reports whether both the actor and the command matched.
func (s Score) FullyMatching() bool { return s.UserMatching() && s.CommandMatching() }

// cmdCmp orders two scores by command specificity, then capabilities,
// then identity change, then security relaxations — the tie-break
// chain used once both scores are known to match the same caller.
func cmdCmp(a, b Score) int {
	switch {
	case a.CmdMin.Order != b.CmdMin.Order:
		return cmpOrdered(a.CmdMin.Order, b.CmdMin.Order)
	}
	if a.CapsMin.Less(b.CapsMin) {
		return -1
	}
	if b.CapsMin.Less(a.CapsMin) {
		return 1
	}
	if a.SetUserMin.Less(b.SetUserMin) {
		return -1
	}
	if b.SetUserMin.Less(a.SetUserMin) {
		return 1
	}
	return cmpOrdered(a.SecurityMin, b.SecurityMin)
}

func cmpOrdered[T ~uint32](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less is the total order over Score (§8 law 3: Score is a total
// order; Better is a strict partial relation consistent with it).
func (s Score) Less(other Score) bool {
	if c := cmdCmp(s, other); c != 0 {
		return c < 0
	}
	return s.UserMin.Less(other.UserMin)
}

// BetterCommand reports whether s's command grade is strictly better
// than other's, among scores that both matched the actor.
func (s Score) BetterCommand(other Score) bool {
	return (s.CommandMatching() && !other.CommandMatching()) ||
		(s.CommandMatching() && cmdCmp(s, other) < 0)
}

// BetterUser reports whether s's actor grade is strictly better than other's.
func (s Score) BetterUser(other Score) bool {
	return s.UserMin.Better(other.UserMin)
}

// BetterFully reports whether s is a fully-matching score strictly
// better than other under the total order.
func (s Score) BetterFully(other Score) bool {
	return (s.FullyMatching() && !other.FullyMatching()) ||
		(s.FullyMatching() && s.Less(other))
}
