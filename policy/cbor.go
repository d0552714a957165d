package policy

import (
	"github.com/fxamacker/cbor/v2"

	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
)

// The CBOR mirrors of MarshalJSON/UnmarshalJSON below exist because
// fxamacker/cbor does not consult json.Marshaler — without them the
// compact form would silently drop the Extra forward-compatibility
// bag and the string forms of Command and ActorEntry (§4.3 round-trip
// fidelity). Commands and CapabilitiesSet are always written as full
// maps under CBOR: the JSON shorthands are not applied here, and
// decoding only fills in a missing default_behavior as "none".

func (c Config) MarshalCBOR() ([]byte, error) {
	alias := configAlias{c.Version, c.Storage, c.Timestamp, c.Options, c.Roles}
	return mergeCBORExtra(alias, c.Extra)
}

func (c *Config) UnmarshalCBOR(data []byte) error {
	var alias configAlias
	if err := cbor.Unmarshal(data, &alias); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_config_cbor")
	}
	c.Version, c.Storage, c.Timestamp, c.Options, c.Roles = alias.Version, alias.Storage, alias.Timestamp, alias.Options, alias.Roles
	c.Extra = splitCBORExtra(data, knownConfigKeys)
	return nil
}

func (r Role) MarshalCBOR() ([]byte, error) {
	alias := roleAlias{r.Name, r.Actors, r.Tasks, r.Options, r.Parents, r.SSD}
	return mergeCBORExtra(alias, r.Extra)
}

func (r *Role) UnmarshalCBOR(data []byte) error {
	var alias roleAlias
	if err := cbor.Unmarshal(data, &alias); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_role_cbor")
	}
	r.Name, r.Actors, r.Tasks, r.Options, r.Parents, r.SSD = alias.Name, alias.Actors, alias.Tasks, alias.Options, alias.Parents, alias.SSD
	r.Extra = splitCBORExtra(data, knownRoleKeys)
	return nil
}

func (t Task) MarshalCBOR() ([]byte, error) {
	alias := taskAlias{t.ID.Name, t.Purpose, t.Credentials, t.Commands, t.Options}
	return mergeCBORExtra(alias, t.Extra)
}

func (t *Task) UnmarshalCBOR(data []byte) error {
	var alias taskAlias
	if err := cbor.Unmarshal(data, &alias); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_task_cbor")
	}
	t.Purpose, t.Credentials, t.Commands, t.Options = alias.Purpose, alias.Credentials, alias.Commands, alias.Options
	t.Extra = splitCBORExtra(data, knownTaskKeys)
	if alias.Name != "" {
		t.ID = TaskID{Name: alias.Name}
	} else {
		t.ID = TaskID{Positional: true}
	}
	return nil
}

// mergeCBORExtra encodes alias as a CBOR map and merges extra's keys
// in, mirroring the JSON-side merge in codec.go.
func mergeCBORExtra(alias any, extra map[string]any) ([]byte, error) {
	buf, err := cbor.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return buf, nil
	}
	var flat map[string]cbor.RawMessage
	if err := cbor.Unmarshal(buf, &flat); err != nil {
		return nil, err
	}
	for k, v := range extra {
		enc, err := cbor.Marshal(v)
		if err != nil {
			return nil, err
		}
		flat[k] = enc
	}
	return cbor.Marshal(flat)
}

func splitCBORExtra(data []byte, known map[string]bool) map[string]any {
	var raw map[string]cbor.RawMessage
	if err := cbor.Unmarshal(data, &raw); err != nil || len(raw) == 0 {
		return nil
	}
	extra := map[string]any{}
	for k, v := range raw {
		if known[k] {
			continue
		}
		var decoded any
		if err := cbor.Unmarshal(v, &decoded); err == nil {
			extra[k] = decoded
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

func (c Commands) MarshalCBOR() ([]byte, error) {
	type alias Commands
	return cbor.Marshal(alias(c))
}

func (c *Commands) UnmarshalCBOR(data []byte) error {
	type alias Commands
	var a alias
	if err := cbor.Unmarshal(data, &a); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_commands_cbor")
	}
	*c = Commands(a)
	if c.Default == "" {
		c.Default = DefaultNone
	}
	return nil
}

func (c CapabilitiesSet) MarshalCBOR() ([]byte, error) {
	type alias CapabilitiesSet
	return cbor.Marshal(alias(c))
}

func (c *CapabilitiesSet) UnmarshalCBOR(data []byte) error {
	type alias CapabilitiesSet
	var a alias
	if err := cbor.Unmarshal(data, &a); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_capabilities_cbor")
	}
	*c = CapabilitiesSet(a)
	if c.Default == "" {
		c.Default = DefaultNone
	}
	return nil
}

func (c Command) MarshalCBOR() ([]byte, error) {
	if c.IsSimple() {
		return cbor.Marshal(c.Simple)
	}
	return cbor.Marshal(c.Structured)
}

func (c *Command) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err == nil {
		c.Simple = s
		c.Structured = nil
		return nil
	}
	var m map[string]any
	if err := cbor.Unmarshal(data, &m); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_command_cbor")
	}
	c.Structured = m
	return nil
}

func (a ActorEntry) MarshalCBOR() ([]byte, error) {
	switch {
	case a.Raw != "":
		return cbor.Marshal(a.Raw)
	case a.User != "":
		return cbor.Marshal("user:" + a.User)
	case len(a.Groups) == 1:
		return cbor.Marshal("group:" + a.Groups[0])
	case len(a.Groups) > 1:
		return cbor.Marshal(a.Groups)
	default:
		return cbor.Marshal("")
	}
}

func (a *ActorEntry) UnmarshalCBOR(data []byte) error {
	var groups []string
	if err := cbor.Unmarshal(data, &groups); err == nil {
		a.Groups = groups
		return nil
	}
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return rarerr.Wrap(err, rarerr.ConfigurationError, "parse_actor_cbor")
	}
	switch {
	case len(s) >= 5 && s[:5] == "user:":
		a.User = s[5:]
	case len(s) >= 6 && s[:6] == "group:":
		a.Groups = []string{s[6:]}
	default:
		a.Raw = s
	}
	return nil
}
