package provider

import (
	"context"
)

type (
	Variant string
	Tier    string
)

const (
	VariantText   Variant = "text"
	VariantVision Variant = "vision"

	TierDefault  Tier = "default"
	TierDetailed Tier = "detailed"
)

// Turn is one user submission as handed to an adapter. Image, when set,
// is either a browser data-URL or a bare base64 payload.
type Turn struct {
	Text  string
	Image string
}

// Reply is the normalized provider response. ConfigMissing marks a
// degraded reply produced without calling upstream because no credential
// was configured; callers can distinguish "answered" from "degraded"
// without a second error channel.
type Reply struct {
	Text          string
	ConfigMissing bool
}

// Adapter translates one turn into one upstream completion call. A
// single attempt, no retries; failures surface immediately with a
// distinguishable sentinel error.
type Adapter interface {
	Invoke(ctx context.Context, turn Turn, tier Tier, maxTokens int) (*Reply, error)
}
