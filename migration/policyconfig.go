package migration

import (
	"github.com/Masterminds/semver/v3"

	"github.com/LeChatP/RootAsRole-sub001/policy"
)

// v2_0_0 and v3_0_0 are the only two schema versions this registry
// currently knows how to step between. A future schema change adds
// another Migration here rather than replacing these.
var (
	v2_0_0 = semver.MustParse("2.0.0")
	v3_0_0 = semver.MustParse("3.0.0")
)

// CurrentVersion is the schema version sr/chsr migrate a loaded
// document toward before matching or editing it.
var CurrentVersion = v3_0_0

// NewPolicyConfigRegistry builds the migration chain for
// policy.Config. The single registered step folds the legacy top-level
// "timeout" block (schema 2.0.0, a bare duration string with no type
// or max_usage) into the structured timestamp descriptor introduced in
// 3.0.0, defaulting the migrated entry to timeout.type=tty and
// max_usage=1 since 2.0.0 never expressed either.
func NewPolicyConfigRegistry() *Registry[*policy.Config] {
	reg := NewRegistry[*policy.Config]()
	reg.Register(Migration[*policy.Config]{
		From: v2_0_0,
		To:   v3_0_0,
		Up:   upgradeTimeoutBlock,
		Down: downgradeTimeoutBlock,
	})
	return reg
}

func upgradeTimeoutBlock(cfg *policy.Config) (*policy.Config, error) {
	if cfg.Timestamp != nil {
		cfg.Version = v3_0_0.String()
		return cfg, nil
	}
	raw, ok := cfg.Extra["timeout"]
	if !ok {
		cfg.Version = v3_0_0.String()
		return cfg, nil
	}
	duration, _ := raw.(string)
	if duration == "" {
		duration = "00:15:00"
	}
	cfg.Timestamp = &policy.TimestampDescriptor{
		Type:     policy.TimestampTTY,
		Duration: duration,
		MaxUsage: 1,
	}
	delete(cfg.Extra, "timeout")
	cfg.Version = v3_0_0.String()
	return cfg, nil
}

func downgradeTimeoutBlock(cfg *policy.Config) (*policy.Config, error) {
	if cfg.Timestamp != nil {
		if cfg.Extra == nil {
			cfg.Extra = map[string]any{}
		}
		cfg.Extra["timeout"] = cfg.Timestamp.Duration
		cfg.Timestamp = nil
	}
	cfg.Version = v2_0_0.String()
	return cfg, nil
}
