package editor

import "github.com/LeChatP/RootAsRole-sub001/policy"

// IsAdmin reports whether any of callerRoles is an admin role: its
// name, or an ancestor's name reached by walking Role.Parents, appears
// in the top-level admin_roles list (§4.14, "rolemanager.rs admin-role
// check").
func IsAdmin(cfg *policy.Config, callerRoles []string) bool {
	admins := adminRoleSet(cfg)
	if len(admins) == 0 {
		return false
	}
	for _, name := range callerRoles {
		if roleIsAdmin(cfg, name, admins, map[string]bool{}) {
			return true
		}
	}
	return false
}

func adminRoleSet(cfg *policy.Config) map[string]bool {
	out := map[string]bool{}
	if cfg.Options == nil || cfg.Options.Extra == nil {
		return out
	}
	raw, ok := cfg.Options.Extra["admin_roles"]
	if !ok {
		return out
	}
	switch v := raw.(type) {
	case []string:
		for _, name := range v {
			out[name] = true
		}
	case []any:
		for _, item := range v {
			if name, ok := item.(string); ok {
				out[name] = true
			}
		}
	}
	return out
}

// roleIsAdmin walks name's ancestor chain looking for a match in
// admins, guarding against a parents cycle with seen.
func roleIsAdmin(cfg *policy.Config, name string, admins, seen map[string]bool) bool {
	if seen[name] {
		return false
	}
	seen[name] = true
	if admins[name] {
		return true
	}
	role := cfg.RoleByName(name)
	if role == nil {
		return false
	}
	for _, parent := range role.Parents {
		if roleIsAdmin(cfg, parent, admins, seen) {
			return true
		}
	}
	return false
}
