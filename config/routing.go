package config

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/jcooky/go-din"

	"github.com/chatrelay/chatrelay/errors"
)

// RoutingConfig drives vision tier selection. The compiled-in defaults
// can be replaced wholesale by a YAML rules file so the keyword sets and
// threshold are swappable without a rebuild.
type RoutingConfig struct {
	RulesFile string `env:"ROUTING_RULES_FILE" yaml:"-"`

	DetailKeywords      []string `yaml:"detail_keywords"`
	QuickKeywords       []string `yaml:"quick_keywords"`
	LongPromptThreshold int      `yaml:"long_prompt_threshold"`
}

func DefaultRoutingConfig() *RoutingConfig {
	return &RoutingConfig{
		DetailKeywords: []string{
			"detail", "detailed", "describe in detail", "thoroughly",
			"analyze", "analysis", "professional", "accurately",
			"read", "text", "ocr", "words", "letters", "writing",
			"count", "how many", "identify all", "list all",
			"medical", "diagnosis", "technical", "scientific",
			"transcribe", "extract", "recognize text",
			"carefully", "precisely", "exact", "specific",
		},
		QuickKeywords: []string{
			"quick", "briefly", "simple", "just",
			"what is", "is there", "can you see",
			"show", "find", "any", "general",
		},
		LongPromptThreshold: 100,
	}
}

func init() {
	din.RegisterT(func(c *din.Container) (*RoutingConfig, error) {
		conf := DefaultRoutingConfig()
		if err := resolveConfig(conf, c.Env == din.EnvTest); err != nil {
			return nil, err
		}

		if conf.RulesFile != "" {
			rules, err := os.ReadFile(conf.RulesFile)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read routing rules file: %s", conf.RulesFile)
			}
			if err := yaml.Unmarshal(rules, conf); err != nil {
				return nil, errors.Wrapf(err, "failed to unmarshal routing rules file: %s", conf.RulesFile)
			}
		}

		return conf, nil
	})
}
