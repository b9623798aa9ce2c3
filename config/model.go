package config

import (
	"github.com/jcooky/go-din"
)

// ModelConfig fixes which upstream models serve each adapter variant and
// the generation budgets per tier. Values are resolved once at container
// start; nothing reads ambient process state afterwards.
type ModelConfig struct {
	TextModel           string `env:"TEXT_MODEL"`
	VisionModel         string `env:"VISION_MODEL"`
	VisionModelDetailed string `env:"VISION_MODEL_DETAILED"`

	Temperature             float64 `env:"MODEL_TEMPERATURE"`
	MaxTokens               int     `env:"MODEL_MAX_TOKENS"`
	VisionMaxTokens         int     `env:"VISION_MAX_TOKENS"`
	VisionMaxTokensDetailed int     `env:"VISION_MAX_TOKENS_DETAILED"`
}

func init() {
	din.RegisterT(func(c *din.Container) (*ModelConfig, error) {
		conf := &ModelConfig{
			TextModel:               "llama-3.3-70b-versatile",
			VisionModel:             "gemini-2.0-flash",
			VisionModelDetailed:     "gemini-1.5-pro",
			Temperature:             0.7,
			MaxTokens:               1024,
			VisionMaxTokens:         1500,
			VisionMaxTokensDetailed: 2048,
		}
		return conf, resolveConfig(conf, c.Env == din.EnvTest)
	})
}
