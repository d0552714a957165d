// Package editor implements the Policy Editor Kernel (component
// C14): the Browsing/Editing/Saving state machine and the mutating
// operations (create_role, delete_role, grant, revoke, add_task,
// delete_task, set_option) that chsr drives. It follows the same
// validate-then-mutate-then-persist shape as the teacher's container
// lifecycle operations, generalized from a single container's state
// file to the whole policy document, and its clone-on-enter-Editing
// step mirrors the teacher's copy-on-write snapshotting before a
// destructive operation.
package editor

import (
	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/storage"
)

// State is a position in the editor's state machine (§4.14).
type State int

const (
	// Browsing is the default, read-only state: Session.Document
	// returns the live document directly.
	Browsing State = iota
	// Editing holds a private clone; mutating operations only
	// succeed in this state.
	Editing
	// Saving is entered transiently by Save while the draft is
	// being validated and persisted; it never outlives one call.
	Saving
)

// Session drives one editor instance against a live document backed
// by storage.
type Session struct {
	backend *storage.Backend
	desc    policy.StorageDescriptor
	live    *policy.Config
	draft   *policy.Config
	state   State
}

// NewSession starts a session in the Browsing state over an
// already-loaded document.
func NewSession(backend *storage.Backend, desc policy.StorageDescriptor, live *policy.Config) *Session {
	return &Session{backend: backend, desc: desc, live: live, state: Browsing}
}

// State reports the session's current position in the state machine.
func (s *Session) State() State { return s.state }

// Document returns the document mutating operations should read:
// the draft clone while Editing/Saving, the live document otherwise.
func (s *Session) Document() *policy.Config {
	if s.draft != nil {
		return s.draft
	}
	return s.live
}

// Begin transitions Browsing -> Editing, cloning the live document so
// every mutation below is invisible to other readers until Save.
func (s *Session) Begin() error {
	if s.state != Browsing {
		return rarerr.New(rarerr.InvalidArguments, "editor.begin", "an edit is already in progress")
	}
	s.draft = s.live.Clone()
	s.state = Editing
	return nil
}

// Abort discards the draft and returns to Browsing without touching
// the live document or disk.
func (s *Session) Abort() error {
	if s.state != Editing {
		return rarerr.Wrap(rarerr.ErrNotEditing, rarerr.InvalidArguments, "editor.abort")
	}
	s.draft = nil
	s.state = Browsing
	return nil
}

// Save links and persists the draft, then promotes it to the live
// document and returns to Browsing. On failure the session falls back
// to Editing rather than Aborted, so the caller can fix the draft and
// retry instead of losing the in-progress edit.
func (s *Session) Save() error {
	if s.state != Editing {
		return rarerr.Wrap(rarerr.ErrNotEditing, rarerr.InvalidArguments, "editor.save")
	}
	s.state = Saving

	if err := policy.Link(s.draft); err != nil {
		s.state = Editing
		return err
	}
	if err := s.backend.Save(s.draft, s.desc); err != nil {
		s.state = Editing
		return err
	}

	s.live = s.draft
	s.draft = nil
	s.state = Browsing
	return nil
}

func (s *Session) requireEditing() error {
	if s.state != Editing {
		return rarerr.Wrap(rarerr.ErrNotEditing, rarerr.InvalidArguments, "editor")
	}
	return nil
}

func (s *Session) requireAdmin(callerRoles []string) error {
	if !IsAdmin(s.draft, callerRoles) {
		return rarerr.Wrap(rarerr.ErrCallerNotAdmin, rarerr.PermissionDenied, "editor")
	}
	return nil
}

// CreateRole adds a new, empty role to the draft.
func (s *Session) CreateRole(callerRoles []string, name string) (*policy.Role, error) {
	if err := s.requireEditing(); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(callerRoles); err != nil {
		return nil, err
	}
	if s.draft.RoleByName(name) != nil {
		return nil, rarerr.WrapDetail(rarerr.ErrDuplicateRoleName, rarerr.ConfigurationError, "editor.create_role", name)
	}
	role := &policy.Role{Name: name, Config: s.draft}
	s.draft.Roles = append(s.draft.Roles, role)
	return role, nil
}

// DeleteRole removes a role and everything it owns from the draft.
func (s *Session) DeleteRole(callerRoles []string, name string) error {
	if err := s.requireEditing(); err != nil {
		return err
	}
	if err := s.requireAdmin(callerRoles); err != nil {
		return err
	}
	idx := -1
	for i, r := range s.draft.Roles {
		if r.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rarerr.Wrap(rarerr.ErrRoleNotFound, rarerr.ConfigurationError, "editor.delete_role")
	}
	s.draft.Roles = append(s.draft.Roles[:idx], s.draft.Roles[idx+1:]...)
	return nil
}

// Grant adds actors to a role, refusing any actor whose existing
// roles would violate the role's (symmetric) SSD constraints.
func (s *Session) Grant(callerRoles []string, roleName string, actors []policy.ActorEntry) error {
	if err := s.requireEditing(); err != nil {
		return err
	}
	if err := s.requireAdmin(callerRoles); err != nil {
		return err
	}
	role := s.draft.RoleByName(roleName)
	if role == nil {
		return rarerr.Wrap(rarerr.ErrRoleNotFound, rarerr.ConfigurationError, "editor.grant")
	}
	for _, actor := range actors {
		if err := checkSSD(s.draft, roleName, actor); err != nil {
			return err
		}
		if !actorGrantedRole(role, actor) {
			role.Actors = append(role.Actors, actor)
		}
	}
	return nil
}

// Revoke removes actors from a role; revoking an actor not currently
// granted is a no-op for that actor.
func (s *Session) Revoke(callerRoles []string, roleName string, actors []policy.ActorEntry) error {
	if err := s.requireEditing(); err != nil {
		return err
	}
	if err := s.requireAdmin(callerRoles); err != nil {
		return err
	}
	role := s.draft.RoleByName(roleName)
	if role == nil {
		return rarerr.Wrap(rarerr.ErrRoleNotFound, rarerr.ConfigurationError, "editor.revoke")
	}
	remove := make(map[string]bool, len(actors))
	for _, a := range actors {
		remove[a.String()] = true
	}
	kept := role.Actors[:0]
	for _, a := range role.Actors {
		if !remove[a.String()] {
			kept = append(kept, a)
		}
	}
	role.Actors = kept
	return nil
}

// AddTask appends a task to a role, rejecting a name collision with
// an existing named task (positional tasks never collide by name).
func (s *Session) AddTask(callerRoles []string, roleName string, task *policy.Task) error {
	if err := s.requireEditing(); err != nil {
		return err
	}
	if err := s.requireAdmin(callerRoles); err != nil {
		return err
	}
	role := s.draft.RoleByName(roleName)
	if role == nil {
		return rarerr.Wrap(rarerr.ErrRoleNotFound, rarerr.ConfigurationError, "editor.add_task")
	}
	if !task.ID.Positional && role.TaskByName(task.ID.Name) != nil {
		return rarerr.WrapDetail(rarerr.ErrDuplicateTaskName, rarerr.ConfigurationError, "editor.add_task", task.ID.Name)
	}
	task.Role = role
	role.Tasks = append(role.Tasks, task)
	return nil
}

// DeleteTask removes one task from a role by its TaskID.
func (s *Session) DeleteTask(callerRoles []string, roleName string, id policy.TaskID) error {
	if err := s.requireEditing(); err != nil {
		return err
	}
	if err := s.requireAdmin(callerRoles); err != nil {
		return err
	}
	role := s.draft.RoleByName(roleName)
	if role == nil {
		return rarerr.Wrap(rarerr.ErrRoleNotFound, rarerr.ConfigurationError, "editor.delete_task")
	}
	idx := -1
	for i, t := range role.Tasks {
		if taskMatchesID(t, id) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rarerr.Wrap(rarerr.ErrTaskNotFound, rarerr.ConfigurationError, "editor.delete_task")
	}
	role.Tasks = append(role.Tasks[:idx], role.Tasks[idx+1:]...)
	return nil
}

// SetOption sets one option key at scope to value, creating the
// scope's OptionsBlock if it doesn't exist yet.
func (s *Session) SetOption(callerRoles []string, scope Scope, key string, value any) error {
	if err := s.requireEditing(); err != nil {
		return err
	}
	if err := s.requireAdmin(callerRoles); err != nil {
		return err
	}
	block, err := scope.resolve(s.draft)
	if err != nil {
		return err
	}
	return applyOption(block, key, value)
}
