// config/overlay.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// RulesFile is the versioned extraction data kept apart from the main config
// so markup drift can be handled by editing rules only.
type RulesFile struct {
	Discover struct {
		Selectors      []string `yaml:"selectors"`
		AnchorKeywords []string `yaml:"anchor_keywords"`
	} `yaml:"discover"`
	Validate struct {
		Blocklist []string `yaml:"blocklist"`
	} `yaml:"validate"`
	Classify struct {
		Rules []Rule `yaml:"rules"`
	} `yaml:"classify"`
}

func OverlayRules(cfg *Config, rulesPath string) error {
	b, err := os.ReadFile(rulesPath)
	if err != nil {
		// Missing rules file should not kill startup
		return nil
	}

	var rf RulesFile
	if err := yaml.Unmarshal(b, &rf); err != nil {
		return err
	}

	if len(rf.Discover.Selectors) > 0 {
		cfg.Discover.Selectors = rf.Discover.Selectors
	}
	if len(rf.Discover.AnchorKeywords) > 0 {
		cfg.Discover.AnchorKeywords = rf.Discover.AnchorKeywords
	}
	if len(rf.Validate.Blocklist) > 0 {
		cfg.Validate.Blocklist = rf.Validate.Blocklist
	}
	if len(rf.Classify.Rules) > 0 {
		cfg.Classify.Rules = rf.Classify.Rules
	}
	return nil
}
