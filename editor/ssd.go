package editor

import (
	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
	"github.com/LeChatP/RootAsRole-sub001/policy"
)

// ssdConflicts returns the set of role names that statically exclude
// roleName, taking the symmetric closure of the declared ssd
// relation: a conflict declared on either side binds both ways
// (§4.14 "SSD symmetric enforcement helper").
func ssdConflicts(cfg *policy.Config, roleName string) map[string]bool {
	out := map[string]bool{}
	if role := cfg.RoleByName(roleName); role != nil {
		for _, other := range role.SSD {
			out[other] = true
		}
	}
	for _, r := range cfg.Roles {
		for _, other := range r.SSD {
			if other == roleName {
				out[r.Name] = true
			}
		}
	}
	return out
}

func actorGrantedRole(role *policy.Role, actor policy.ActorEntry) bool {
	key := actor.String()
	for _, a := range role.Actors {
		if a.String() == key {
			return true
		}
	}
	return false
}

// checkSSD reports whether granting actor to roleName would violate
// a static separation-of-duties constraint: actor must not already
// hold any role that conflicts with roleName, in either direction.
func checkSSD(cfg *policy.Config, roleName string, actor policy.ActorEntry) error {
	conflicts := ssdConflicts(cfg, roleName)
	if len(conflicts) == 0 {
		return nil
	}
	for _, r := range cfg.Roles {
		if r.Name == roleName || !conflicts[r.Name] {
			continue
		}
		if actorGrantedRole(r, actor) {
			return rarerr.WrapDetail(rarerr.ErrSSDViolation, rarerr.ConfigurationError, "editor.grant", r.Name)
		}
	}
	return nil
}
