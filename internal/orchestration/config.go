package orchestration

import (
	"time"

	"github.com/powerskills-labs/powerskills-go/internal/platform/env"
)

type Config struct {
	StepDelay        time.Duration
	EnforceOwnership bool
	RulesPath        string
}

func ConfigFromEnv() (Config, error) {
	stepDelay, err := env.Duration("ORCH_STEP_DELAY", time.Second)
	if err != nil {
		return Config{}, err
	}
	enforceOwnership, err := env.Bool("ORCH_ENFORCE_OWNERSHIP", false)
	if err != nil {
		return Config{}, err
	}
	return Config{
		StepDelay:        stepDelay,
		EnforceOwnership: enforceOwnership,
		RulesPath:        env.String("ORCH_RULES_PATH", ""),
	}, nil
}

// Deriver builds the configured chain deriver: the YAML rule file when
// one is set, the built-in rules otherwise.
func (c Config) Deriver() (ChainDeriver, error) {
	if c.RulesPath == "" {
		return NewRuleDeriver(DefaultRuleSet())
	}
	rules, err := LoadRuleSet(c.RulesPath)
	if err != nil {
		return nil, err
	}
	return NewRuleDeriver(rules)
}
