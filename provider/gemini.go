package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/jcooky/go-din"

	"github.com/chatrelay/chatrelay/config"
	"github.com/chatrelay/chatrelay/errors"
	"github.com/chatrelay/chatrelay/internal/mylog"
)

const visionSetupInstructions = "Image analysis is not configured yet.\n\n" +
	"To enable image analysis:\n" +
	"1. Get a free API key from: https://aistudio.google.com/app/apikey\n" +
	"2. Add it to your .env file: GEMINI_API_KEY=your_key_here\n" +
	"3. Restart the server\n\n" +
	"Google Gemini offers a generous free tier!"

type (
	// GeminiClient is the vision adapter. It speaks the bare
	// generateContent REST endpoint with API-key query auth.
	GeminiClient struct {
		logger *mylog.Logger

		apiKey        string
		baseUrl       string
		defaultModel  string
		detailedModel string

		httpClient *http.Client
	}

	generateContentRequest struct {
		Contents         []geminiContent   `json:"contents"`
		GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	}
	geminiContent struct {
		Parts []geminiPart `json:"parts"`
	}
	geminiPart struct {
		Text       string      `json:"text,omitempty"`
		InlineData *inlineData `json:"inline_data,omitempty"`
	}
	inlineData struct {
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	}
	generationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
	}

	generateContentResponse struct {
		Candidates []geminiCandidate `json:"candidates"`
		Error      *geminiAPIError   `json:"error,omitempty"`
	}
	geminiCandidate struct {
		Content geminiContent `json:"content"`
	}

	// geminiAPIError is the JSON structure embedded in failed responses
	geminiAPIError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	}
)

var _ Adapter = (*GeminiClient)(nil)

func NewGeminiClient(logger *mylog.Logger, conf *config.GeminiConfig, models *config.ModelConfig) *GeminiClient {
	return &GeminiClient{
		logger:        logger,
		apiKey:        conf.APIKey,
		baseUrl:       conf.BaseUrl,
		defaultModel:  models.VisionModel,
		detailedModel: models.VisionModelDetailed,
		httpClient: &http.Client{
			Timeout: time.Duration(conf.RequestTimeoutSeconds) * time.Second,
		},
	}
}

func (g *GeminiClient) Invoke(ctx context.Context, turn Turn, tier Tier, maxTokens int) (*Reply, error) {
	if g.apiKey == "" {
		// Deliberate soft-fail: the chat stays usable without a vision
		// credential, the reply just explains how to configure one.
		return &Reply{Text: visionSetupInstructions, ConfigMissing: true}, nil
	}

	mimeType, imageData := ParseImageData(turn.Image)

	model := g.defaultModel
	if tier == TierDetailed {
		model = g.detailedModel
	}

	g.logger.Debug("vision request", "model", model, "mime_type", mimeType, "image_data_len", len(imageData))

	body := generateContentRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: turn.Text},
				{InlineData: &inlineData{MimeType: mimeType, Data: imageData}},
			},
		}},
		GenerationConfig: &generationConfig{MaxOutputTokens: maxTokens},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	params := url.Values{}
	params.Set("key", g.apiKey)
	reqURL := fmt.Sprintf("%s/models/%s:generateContent?%s", g.baseUrl, model, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, errors.Wrapf(errors.ErrUpstreamTimeout, "vision request timed out: %v", err)
		}
		return nil, errors.Wrapf(errors.ErrUpstream, "vision request failed: %v", err)
	}
	defer resp.Body.Close()

	var out generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Wrapf(errors.ErrUpstream, "vision API call failed: HTTP %d (response decode failed)", resp.StatusCode)
		}
		return nil, errors.Wrapf(errors.ErrInvalidResponseShape, "failed to decode vision response: %v", err)
	}

	if resp.StatusCode != http.StatusOK || out.Error != nil {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if out.Error != nil {
			msg = out.Error.Message
		}
		return nil, errors.Wrapf(errors.ErrUpstream, "vision API error: %s", msg)
	}

	if len(out.Candidates) == 0 ||
		len(out.Candidates[0].Content.Parts) == 0 ||
		out.Candidates[0].Content.Parts[0].Text == "" {
		return nil, errors.Wrapf(errors.ErrInvalidResponseShape, "no text part in vision response")
	}

	return &Reply{Text: out.Candidates[0].Content.Parts[0].Text}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func init() {
	din.RegisterT(func(c *din.Container) (*GeminiClient, error) {
		logger, err := din.Get[*mylog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}
		conf, err := din.GetT[*config.GeminiConfig](c)
		if err != nil {
			return nil, err
		}
		models, err := din.GetT[*config.ModelConfig](c)
		if err != nil {
			return nil, err
		}

		return NewGeminiClient(logger, conf, models), nil
	})
}
