package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jcooky/go-din"
	goopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/chatrelay/chatrelay/config"
	"github.com/chatrelay/chatrelay/errors"
	"github.com/chatrelay/chatrelay/internal/mylog"
)

// GroqClient is the text adapter. Groq exposes an OpenAI-compatible
// chat-completions endpoint, so the OpenAI SDK with an overridden base
// URL covers the whole wire protocol.
type GroqClient struct {
	logger *mylog.Logger
	client *goopenai.Client

	model       string
	temperature float64
}

var _ Adapter = (*GroqClient)(nil)

func NewGroqClient(logger *mylog.Logger, conf *config.GroqConfig, models *config.ModelConfig) *GroqClient {
	client := goopenai.NewClient(
		option.WithAPIKey(conf.APIKey),
		option.WithBaseURL(conf.BaseUrl),
		option.WithRequestTimeout(time.Duration(conf.RequestTimeoutSeconds)*time.Second),
	)

	return &GroqClient{
		logger:      logger,
		client:      client,
		model:       models.TextModel,
		temperature: models.Temperature,
	}
}

func (g *GroqClient) Invoke(ctx context.Context, turn Turn, _ Tier, maxTokens int) (*Reply, error) {
	res, err := g.client.Chat.Completions.New(ctx, goopenai.ChatCompletionNewParams{
		Model: goopenai.String(g.model),
		Messages: goopenai.F([]goopenai.ChatCompletionMessageParamUnion{
			goopenai.UserMessage(turn.Text),
		}),
		Temperature: goopenai.Float(g.temperature),
		MaxTokens:   goopenai.Int(int64(maxTokens)),
	})
	if err != nil {
		var apierr *goopenai.Error
		if errors.As(err, &apierr) {
			code, message := apiErrorDetails(apierr)
			if code == "model_not_found" {
				return nil, errors.Wrapf(errors.ErrModelUnavailable, "model %q not available: %s", g.model, message)
			}
			return nil, errors.Wrapf(errors.ErrUpstream, "text API error: %s", message)
		}
		if isTimeout(err) {
			return nil, errors.Wrapf(errors.ErrUpstreamTimeout, "text request timed out: %v", err)
		}
		return nil, errors.Wrapf(errors.ErrUpstream, "text request failed: %v", err)
	}

	if len(res.Choices) == 0 || res.Choices[0].Message.Content == "" {
		return nil, errors.Wrapf(errors.ErrInvalidResponseShape, "no message content in text response")
	}

	return &Reply{Text: res.Choices[0].Message.Content}, nil
}

// apiErrorDetails digs the code and message out of a failed completion.
// The wire body nests them under "error", which the SDK keeps only as
// raw JSON on the error value, so the root Code/Message fields stay
// empty and cannot be used directly.
func apiErrorDetails(apierr *goopenai.Error) (code, message string) {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(apierr.JSON.RawJSON()), &body); err == nil && body.Error.Message != "" {
		return body.Error.Code, body.Error.Message
	}
	if apierr.Message != "" {
		return apierr.Code, apierr.Message
	}
	return apierr.Code, apierr.Error()
}

func init() {
	din.RegisterT(func(c *din.Container) (*GroqClient, error) {
		logger, err := din.Get[*mylog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}
		conf, err := din.GetT[*config.GroqConfig](c)
		if err != nil {
			return nil, err
		}
		models, err := din.GetT[*config.ModelConfig](c)
		if err != nil {
			return nil, err
		}

		return NewGroqClient(logger, conf, models), nil
	})
}
