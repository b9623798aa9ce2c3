package config

import (
	"github.com/jcooky/go-din"
)

type (
	GeminiConfig struct {
		APIKey                string `env:"GEMINI_API_KEY"`
		BaseUrl               string `env:"GEMINI_BASE_URL"`
		RequestTimeoutSeconds int    `env:"GEMINI_REQUEST_TIMEOUT_SECONDS"`
	}
	GroqConfig struct {
		APIKey                string `env:"GROQ_API_KEY"`
		BaseUrl               string `env:"GROQ_BASE_URL"`
		RequestTimeoutSeconds int    `env:"GROQ_REQUEST_TIMEOUT_SECONDS"`
	}
)

func init() {
	din.RegisterT(func(c *din.Container) (*GeminiConfig, error) {
		conf := &GeminiConfig{
			BaseUrl:               "https://generativelanguage.googleapis.com/v1beta",
			RequestTimeoutSeconds: 60,
		}
		return conf, resolveConfig(conf, c.Env == din.EnvTest)
	})
	din.RegisterT(func(c *din.Container) (*GroqConfig, error) {
		conf := &GroqConfig{
			BaseUrl:               "https://api.groq.com/openai/v1",
			RequestTimeoutSeconds: 60,
		}
		return conf, resolveConfig(conf, c.Env == din.EnvTest)
	})
}
