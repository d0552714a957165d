package policy

import (
	"strconv"

	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
)

// RoleNames returns every role name in the document, in declaration
// order (`chsr list roles`).
func (c *Config) RoleNames() []string {
	out := make([]string, len(c.Roles))
	for i, r := range c.Roles {
		out[i] = r.Name
	}
	return out
}

// TaskSummary is a listing-friendly view of a task: its display name
// (positional tasks are rendered by index since they have no name).
type TaskSummary struct {
	ID      TaskID
	Purpose string
}

// String renders a TaskSummary the way the CLI lists it.
func (s TaskSummary) String() string {
	if s.ID.Positional {
		return taskPositionalName(s.ID.Index)
	}
	return s.ID.Name
}

func taskPositionalName(index int) string {
	return "#" + strconv.Itoa(index)
}

// TaskSummaries lists a role's tasks (`chsr list tasks -r ROLE`).
func (r *Role) TaskSummaries() []TaskSummary {
	out := make([]TaskSummary, len(r.Tasks))
	for i, t := range r.Tasks {
		out[i] = TaskSummary{ID: t.ID, Purpose: t.Purpose}
	}
	return out
}

// String renders an ActorEntry for listing purposes: "user:NAME",
// "group:A&B&...", or the raw form for an unrecognized entry.
func (a ActorEntry) String() string {
	switch {
	case a.User != "":
		return "user:" + a.User
	case len(a.Groups) > 0:
		out := "group:" + a.Groups[0]
		for _, g := range a.Groups[1:] {
			out += "&" + g
		}
		return out
	default:
		return a.Raw
	}
}

// Actors lists the actors granted a role (`chsr list actors -r ROLE`).
// Actors are granted at the role level (§3 Role.Actors); taskName is
// validated against the role's tasks so an unknown -t filter is
// reported rather than silently ignored, but the listing itself is
// the same for every task in the role.
func (c *Config) Actors(roleName, taskName string) ([]ActorEntry, error) {
	role := c.RoleByName(roleName)
	if role == nil {
		return nil, rarerr.Wrap(rarerr.ErrRoleNotFound, rarerr.ConfigurationError, "policy.actors")
	}
	if taskName != "" && role.TaskByName(taskName) == nil {
		return nil, rarerr.Wrap(rarerr.ErrTaskNotFound, rarerr.ConfigurationError, "policy.actors")
	}
	return role.Actors, nil
}
