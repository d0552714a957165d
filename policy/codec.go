package policy

import (
	"encoding/json"
	"fmt"
	"strings"

	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
)

// knownConfigKeys, knownRoleKeys, knownTaskKeys list the JSON keys this
// package understands at each level; anything else lands in Extra so a
// newer policy file's unknown fields survive a load-then-save cycle
// untouched (§4.3 forward-compatibility).
var (
	knownConfigKeys = map[string]bool{"version": true, "storage": true, "timestamp": true, "options": true, "roles": true}
	knownRoleKeys   = map[string]bool{"name": true, "actors": true, "tasks": true, "options": true, "parents": true, "ssd": true}
	knownTaskKeys   = map[string]bool{"name": true, "purpose": true, "cred": true, "commands": true, "options": true}
)

func splitExtra(raw map[string]json.RawMessage, known map[string]bool) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	extra := map[string]any{}
	for k, v := range raw {
		if known[k] {
			continue
		}
		var decoded any
		if err := json.Unmarshal(v, &decoded); err == nil {
			extra[k] = decoded
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

// configAlias mirrors Config's JSON-tagged fields without the methods,
// so UnmarshalJSON can decode into it and MarshalJSON can decode from
// it without infinite recursion.
type configAlias struct {
	Version   string               `json:"version"`
	Storage   StorageDescriptor    `json:"storage"`
	Timestamp *TimestampDescriptor `json:"timestamp,omitempty"`
	Options   *OptionsBlock        `json:"options,omitempty"`
	Roles     []*Role              `json:"roles"`
}

func (c Config) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	alias := configAlias{c.Version, c.Storage, c.Timestamp, c.Options, c.Roles}
	buf, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(buf, &flat); err != nil {
		return nil, err
	}
	for k, v := range flat {
		out[k] = v
	}
	for k, v := range c.Extra {
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = enc
	}
	return json.Marshal(out)
}

func (c *Config) UnmarshalJSON(data []byte) error {
	var alias configAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_config")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_config")
	}
	c.Version = alias.Version
	c.Storage = alias.Storage
	c.Timestamp = alias.Timestamp
	c.Options = alias.Options
	c.Roles = alias.Roles
	c.Extra = splitExtra(raw, knownConfigKeys)
	return nil
}

type roleAlias struct {
	Name    string        `json:"name"`
	Actors  []ActorEntry  `json:"actors,omitempty"`
	Tasks   []*Task       `json:"tasks,omitempty"`
	Options *OptionsBlock `json:"options,omitempty"`
	Parents []string      `json:"parents,omitempty"`
	SSD     []string      `json:"ssd,omitempty"`
}

func (r Role) MarshalJSON() ([]byte, error) {
	alias := roleAlias{r.Name, r.Actors, r.Tasks, r.Options, r.Parents, r.SSD}
	buf, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return buf, nil
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(buf, &flat); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		flat[k] = enc
	}
	return json.Marshal(flat)
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var alias roleAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_role")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_role")
	}
	r.Name = alias.Name
	r.Actors = alias.Actors
	r.Tasks = alias.Tasks
	r.Options = alias.Options
	r.Parents = alias.Parents
	r.SSD = alias.SSD
	r.Extra = splitExtra(raw, knownRoleKeys)
	return nil
}

// taskAlias carries Name as a plain string that is omitted for a
// positional task; an absent or empty name decodes as a positional
// task (§3 Task identity).
type taskAlias struct {
	Name        string        `json:"name,omitempty"`
	Purpose     string        `json:"purpose,omitempty"`
	Credentials Credentials   `json:"cred"`
	Commands    Commands      `json:"commands"`
	Options     *OptionsBlock `json:"options,omitempty"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	alias := taskAlias{t.ID.Name, t.Purpose, t.Credentials, t.Commands, t.Options}
	buf, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(t.Extra) == 0 {
		return buf, nil
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(buf, &flat); err != nil {
		return nil, err
	}
	for k, v := range t.Extra {
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		flat[k] = enc
	}
	return json.Marshal(flat)
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var alias taskAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_task")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_task")
	}
	t.Purpose = alias.Purpose
	t.Credentials = alias.Credentials
	t.Commands = alias.Commands
	t.Options = alias.Options
	t.Extra = splitExtra(raw, knownTaskKeys)
	if alias.Name != "" {
		t.ID = TaskID{Name: alias.Name}
	} else {
		t.ID = TaskID{Positional: true}
	}
	return nil
}

// MarshalJSON renders an ActorEntry as its canonical shorthand: a bare
// "user:<name>" string for a single user, a bare array for a group
// combination, or the raw string for an unrecognized entry.
func (a ActorEntry) MarshalJSON() ([]byte, error) {
	switch {
	case a.Raw != "":
		return json.Marshal(a.Raw)
	case a.User != "":
		return json.Marshal("user:" + a.User)
	case len(a.Groups) == 1:
		return json.Marshal("group:" + a.Groups[0])
	case len(a.Groups) > 1:
		return json.Marshal(a.Groups)
	default:
		return json.Marshal("")
	}
}

func (a *ActorEntry) UnmarshalJSON(data []byte) error {
	var groups []string
	if err := json.Unmarshal(data, &groups); err == nil {
		a.Groups = groups
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_actor")
	}
	switch {
	case strings.HasPrefix(s, "user:"):
		a.User = strings.TrimPrefix(s, "user:")
	case strings.HasPrefix(s, "group:"):
		a.Groups = []string{strings.TrimPrefix(s, "group:")}
	default:
		a.Raw = s
	}
	return nil
}

// MarshalJSON renders a CapabilitiesSet with empty add/sub as the bare
// string "none" or "all" (its default_behavior), and any other set as
// the full object.
func (c CapabilitiesSet) MarshalJSON() ([]byte, error) {
	if len(c.Add) == 0 && len(c.Sub) == 0 {
		if c.Default == DefaultAll {
			return json.Marshal(string(DefaultAll))
		}
		return json.Marshal(string(DefaultNone))
	}
	type alias CapabilitiesSet
	return json.Marshal(alias(c))
}

func (c *CapabilitiesSet) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		*c = CapabilitiesSet{Default: DefaultNone}
		if bare == string(DefaultAll) {
			c.Default = DefaultAll
		}
		return nil
	}
	type alias CapabilitiesSet
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_capabilities")
	}
	*c = CapabilitiesSet(a)
	if c.Default == "" {
		c.Default = DefaultNone
	}
	return nil
}

// MarshalJSON renders Commands using the §4.3 shorthand rules: a node
// with only additions and default=none becomes a bare array; a node
// with empty add/sub becomes the bare boolean true/false for
// default=all/none (unlike CapabilitiesSet's string shorthand).
func (c Commands) MarshalJSON() ([]byte, error) {
	if len(c.Sub) == 0 {
		if len(c.Add) == 0 {
			return json.Marshal(c.Default == DefaultAll)
		}
		if c.Default == DefaultNone {
			return json.Marshal(c.Add)
		}
	}
	type alias Commands
	return json.Marshal(alias(c))
}

func (c *Commands) UnmarshalJSON(data []byte) error {
	var bare bool
	if err := json.Unmarshal(data, &bare); err == nil {
		c.Default = DefaultNone
		if bare {
			c.Default = DefaultAll
		}
		return nil
	}
	var list []Command
	if err := json.Unmarshal(data, &list); err == nil {
		c.Default = DefaultNone
		c.Add = list
		return nil
	}
	type alias Commands
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_commands")
	}
	*c = Commands(a)
	if c.Default == "" {
		c.Default = DefaultNone
	}
	return nil
}

// MarshalJSON renders a Command as its bare string form when simple,
// else as the structured map (§4.5).
func (c Command) MarshalJSON() ([]byte, error) {
	if c.IsSimple() {
		return json.Marshal(c.Simple)
	}
	return json.Marshal(c.Structured)
}

func (c *Command) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Simple = s
		c.Structured = nil
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_command")
	}
	c.Structured = m
	return nil
}

// describeTaskID renders a TaskID for error messages without
// revealing which role it belongs to (denial stays opaque, §7).
func describeTaskID(id TaskID) string {
	if id.Positional {
		return fmt.Sprintf("#%d", id.Index)
	}
	return id.Name
}
