package commands

import (
	"testing"

	"github.com/b1-systems/rndc-go/internal/config"
)

func TestApplyFlagOverrides(t *testing.T) {
	// Mutates package-level flag vars, so not parallel.

	orig := hostFlag
	origPort := portFlag
	origKey := keyFlag
	t.Cleanup(func() {
		hostFlag = orig
		portFlag = origPort
		keyFlag = origKey
	})

	hostFlag = "10.0.0.5"
	portFlag = 9953
	keyFlag = "a2V5"

	cfg := config.DefaultConfig()
	applyFlagOverrides(cfg)

	if cfg.Server.Host != "10.0.0.5" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "10.0.0.5")
	}
	if cfg.Server.Port != 9953 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9953)
	}
	if cfg.Server.Key != "a2V5" {
		t.Errorf("Server.Key = %q, want %q", cfg.Server.Key, "a2V5")
	}
}

func TestApplyFlagOverridesLeavesUnsetFieldsAlone(t *testing.T) {
	// Mutates package-level flag vars, so not parallel.

	orig := hostFlag
	origPort := portFlag
	origKey := keyFlag
	t.Cleanup(func() {
		hostFlag = orig
		portFlag = origPort
		keyFlag = origKey
	})

	hostFlag, portFlag, keyFlag = "", 0, ""

	cfg := config.DefaultConfig()
	cfg.Server.Key = "existing-key"
	applyFlagOverrides(cfg)

	if cfg.Server.Host != config.DefaultConfig().Server.Host {
		t.Errorf("Server.Host changed to %q with no override flag", cfg.Server.Host)
	}
	if cfg.Server.Key != "existing-key" {
		t.Errorf("Server.Key = %q, want unchanged %q", cfg.Server.Key, "existing-key")
	}
}
