package policy

import (
	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
)

// Link rewires every non-owning back-reference (Role.Config,
// Task.Role) and assigns positional TaskIDs their index, then
// validates the structural invariants from §3/§4.3: unique role
// names, unique named task names within a role, version parses as
// semver, and every parent role name exists. Call this after
// unmarshaling a document and after any structural edit (C14 clones
// the tree, mutates the clone, then re-Links before validating).
func Link(c *Config) error {
	if _, err := c.ParsedVersion(); err != nil {
		return err
	}

	seenRoles := map[string]bool{}
	for _, r := range c.Roles {
		if seenRoles[r.Name] {
			return rarerr.WrapDetail(rarerr.ErrDuplicateRoleName, rarerr.ConfigurationError, "link", r.Name)
		}
		seenRoles[r.Name] = true
		r.Config = c

		seenTasks := map[string]bool{}
		for i, t := range r.Tasks {
			t.Role = r
			if t.ID.Positional {
				t.ID.Index = i
				continue
			}
			if seenTasks[t.ID.Name] {
				return rarerr.WrapDetail(rarerr.ErrDuplicateTaskName, rarerr.ConfigurationError, "link", t.ID.Name)
			}
			seenTasks[t.ID.Name] = true
		}
	}

	for _, r := range c.Roles {
		for _, parent := range r.Parents {
			if !seenRoles[parent] {
				return rarerr.WrapDetail(rarerr.ErrUnknownParentRole, rarerr.ConfigurationError, "link", parent)
			}
		}
	}

	return nil
}

// Clone produces a deep copy of the document suitable for the Policy
// Editor Kernel's clone-on-enter-Editing step (§4.14 C14): mutations on
// the clone never reach the live, Browsing-state document until Save.
func (c *Config) Clone() *Config {
	clone := &Config{
		Version:   c.Version,
		Storage:   c.Storage,
		Options:   cloneOptionsBlock(c.Options),
		Extra:     cloneExtra(c.Extra),
	}
	if c.Timestamp != nil {
		ts := *c.Timestamp
		clone.Timestamp = &ts
	}
	clone.Roles = make([]*Role, len(c.Roles))
	for i, r := range c.Roles {
		clone.Roles[i] = r.clone()
	}
	_ = Link(clone)
	return clone
}

func (r *Role) clone() *Role {
	clone := &Role{
		Name:    r.Name,
		Options: cloneOptionsBlock(r.Options),
		Parents: append([]string(nil), r.Parents...),
		SSD:     append([]string(nil), r.SSD...),
		Extra:   cloneExtra(r.Extra),
	}
	clone.Actors = append([]ActorEntry(nil), r.Actors...)
	clone.Tasks = make([]*Task, len(r.Tasks))
	for i, t := range r.Tasks {
		clone.Tasks[i] = t.clone()
	}
	return clone
}

func (t *Task) clone() *Task {
	clone := &Task{
		ID:          t.ID,
		Purpose:     t.Purpose,
		Credentials: t.Credentials,
		Commands:    t.Commands,
		Options:     cloneOptionsBlock(t.Options),
		Extra:       cloneExtra(t.Extra),
	}
	clone.Commands.Add = append([]Command(nil), t.Commands.Add...)
	clone.Commands.Sub = append([]Command(nil), t.Commands.Sub...)
	return clone
}

func cloneOptionsBlock(o *OptionsBlock) *OptionsBlock {
	if o == nil {
		return nil
	}
	clone := *o
	clone.EnvWhitelist = append([]string(nil), o.EnvWhitelist...)
	clone.EnvChecklist = append([]string(nil), o.EnvChecklist...)
	if o.EnvSet != nil {
		clone.EnvSet = make(map[string]string, len(o.EnvSet))
		for k, v := range o.EnvSet {
			clone.EnvSet[k] = v
		}
	}
	if o.Timeout != nil {
		ts := *o.Timeout
		clone.Timeout = &ts
	}
	clone.Extra = cloneExtra(o.Extra)
	return &clone
}

func cloneExtra(extra map[string]any) map[string]any {
	if extra == nil {
		return nil
	}
	clone := make(map[string]any, len(extra))
	for k, v := range extra {
		clone[k] = v
	}
	return clone
}
