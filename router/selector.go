package router

import (
	"strings"

	"github.com/jcooky/go-din"
	"github.com/samber/lo"

	"github.com/chatrelay/chatrelay/config"
	"github.com/chatrelay/chatrelay/provider"
)

// Selection is the routing decision for one turn.
type Selection struct {
	Variant   provider.Variant
	Tier      provider.Tier
	MaxTokens int
}

// Selector decides which adapter variant and quality tier serve a turn.
// It is a pure function of the turn content and the injected config:
// keyword checks are membership tests over the whole text, so the order
// of the keyword sets never changes the outcome.
type Selector struct {
	conf   *config.RoutingConfig
	models *config.ModelConfig
}

func NewSelector(conf *config.RoutingConfig, models *config.ModelConfig) *Selector {
	return &Selector{
		conf:   conf,
		models: models,
	}
}

func (s *Selector) Select(userText string, hasImage bool) Selection {
	if !hasImage {
		return Selection{
			Variant:   provider.VariantText,
			Tier:      provider.TierDefault,
			MaxTokens: s.models.MaxTokens,
		}
	}

	lower := strings.ToLower(userText)

	contains := func(keyword string) bool {
		return strings.Contains(lower, keyword)
	}
	needsDetail := lo.SomeBy(s.conf.DetailKeywords, contains)
	wantsQuick := lo.SomeBy(s.conf.QuickKeywords, contains)

	// A quick signal always wins over a detail signal.
	detailed := Selection{
		Variant:   provider.VariantVision,
		Tier:      provider.TierDetailed,
		MaxTokens: s.models.VisionMaxTokensDetailed,
	}
	switch {
	case needsDetail && !wantsQuick:
		return detailed
	case len(lower) > s.conf.LongPromptThreshold && !wantsQuick:
		return detailed
	}

	return Selection{
		Variant:   provider.VariantVision,
		Tier:      provider.TierDefault,
		MaxTokens: s.models.VisionMaxTokens,
	}
}

func init() {
	din.RegisterT(func(c *din.Container) (*Selector, error) {
		conf, err := din.GetT[*config.RoutingConfig](c)
		if err != nil {
			return nil, err
		}
		models, err := din.GetT[*config.ModelConfig](c)
		if err != nil {
			return nil, err
		}

		return NewSelector(conf, models), nil
	})
}
