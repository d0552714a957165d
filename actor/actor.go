// Package actor resolves user and group references against the host's
// identity database and computes a caller's group-membership closure
// (component C2). It wraps os/user the way the launcher side of the
// pack wraps os/exec's uid/gid fields — numeric IDs flow through
// syscalls, names exist only for matching and display.
package actor

import (
	"os/user"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
)

// Ref identifies a user or group either by numeric id or by name;
// resolution against the host database happens lazily, on demand.
type Ref struct {
	ID   uint32
	Name string
	// ByName is true when Name should be resolved rather than ID.
	ByName bool
}

// RefByID builds a Ref that resolves by numeric id.
func RefByID(id uint32) Ref { return Ref{ID: id} }

// RefByName builds a Ref that resolves by name.
func RefByName(name string) Ref { return Ref{Name: name, ByName: true} }

// ParseRef accepts either a bare numeric id or a name, the way policy
// documents encode user/group references (§4 Actor tagged variant).
func ParseRef(raw string) Ref {
	if n, err := strconv.ParseUint(raw, 10, 32); err == nil {
		return RefByID(uint32(n))
	}
	return RefByName(raw)
}

// ResolvedUser is the result of resolving a user reference.
type ResolvedUser struct {
	UID        uint32
	Name       string
	PrimaryGID uint32
}

// ResolvedGroup is the result of resolving a group reference.
type ResolvedGroup struct {
	GID  uint32
	Name string
}

// ResolveUser resolves a Ref against the host user database. A false
// second return means the reference does not exist; it is never an
// error, since an unresolved actor simply fails to match (§7 denial
// stays opaque — a lookup miss is not reported differently than a
// lookup mismatch).
func ResolveUser(ref Ref) (ResolvedUser, bool) {
	var u *user.User
	var err error
	if ref.ByName {
		u, err = user.Lookup(ref.Name)
	} else {
		u, err = user.LookupId(strconv.FormatUint(uint64(ref.ID), 10))
	}
	if err != nil {
		return ResolvedUser{}, false
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return ResolvedUser{}, false
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return ResolvedUser{}, false
	}
	return ResolvedUser{UID: uint32(uid), Name: u.Username, PrimaryGID: uint32(gid)}, true
}

// ResolveGroup resolves a Ref against the host group database.
func ResolveGroup(ref Ref) (ResolvedGroup, bool) {
	var g *user.Group
	var err error
	if ref.ByName {
		g, err = user.LookupGroup(ref.Name)
	} else {
		g, err = user.LookupGroupId(strconv.FormatUint(uint64(ref.ID), 10))
	}
	if err != nil {
		return ResolvedGroup{}, false
	}
	gid, err := strconv.ParseUint(g.Gid, 10, 32)
	if err != nil {
		return ResolvedGroup{}, false
	}
	return ResolvedGroup{GID: uint32(gid), Name: g.Name}, true
}

// Membership computes the effective group-membership closure for uid:
// its primary group plus every supplementary group it belongs to.
func Membership(uid uint32) mapset.Set[uint32] {
	out := mapset.NewThreadUnsafeSet[uint32]()
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return out
	}
	if gid, err := strconv.ParseUint(u.Gid, 10, 32); err == nil {
		out.Add(uint32(gid))
	}
	gids, err := u.GroupIds()
	if err != nil {
		return out
	}
	for _, raw := range gids {
		if gid, err := strconv.ParseUint(raw, 10, 32); err == nil {
			out.Add(uint32(gid))
		}
	}
	return out
}

// GroupCombination is an AND-set of group references: it matches a
// caller only if every group resolves and the caller belongs to all of
// them (§4.2).
type GroupCombination struct {
	Groups []Ref
}

// Matches reports whether every group in the combination resolves and
// membership contains its gid.
func (g GroupCombination) Matches(membership mapset.Set[uint32]) bool {
	if len(g.Groups) == 0 {
		return false
	}
	for _, ref := range g.Groups {
		resolved, ok := ResolveGroup(ref)
		if !ok || !membership.Contains(resolved.GID) {
			return false
		}
	}
	return true
}

// Kind distinguishes the tagged variants of Actor (§4 glossary).
type Kind int

const (
	// KindUser matches a single resolved user.
	KindUser Kind = iota
	// KindGroup matches a GroupCombination.
	KindGroup
	// KindUnknown carries a raw, unresolved actor entry forward for
	// forward-compatibility instead of discarding it.
	KindUnknown
)

// Actor is the tagged variant described in §4: a user reference, a
// group combination, or an opaque unknown entry preserved verbatim.
type Actor struct {
	Kind  Kind
	User  Ref
	Group GroupCombination
	Raw   string
}

// NewUserActor builds a user-kind Actor.
func NewUserActor(ref Ref) Actor { return Actor{Kind: KindUser, User: ref} }

// NewGroupActor builds a group-kind Actor from one or more group refs.
func NewGroupActor(refs ...Ref) Actor {
	return Actor{Kind: KindGroup, Group: GroupCombination{Groups: refs}}
}

// NewUnknownActor preserves a raw, unrecognized actor entry.
func NewUnknownActor(raw string) Actor { return Actor{Kind: KindUnknown, Raw: raw} }

// Matches reports whether the actor matches the given caller uid and
// membership closure (§4.7 step: "user match beats group match").
func (a Actor) Matches(uid uint32, membership mapset.Set[uint32]) bool {
	switch a.Kind {
	case KindUser:
		resolved, ok := ResolveUser(a.User)
		return ok && resolved.UID == uid
	case KindGroup:
		return a.Group.Matches(membership)
	default:
		return false
	}
}
