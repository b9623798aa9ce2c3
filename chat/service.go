package chat

import (
	"context"
	"encoding/base64"

	"github.com/jcooky/go-din"
	"gorm.io/datatypes"

	"github.com/chatrelay/chatrelay/entity"
	"github.com/chatrelay/chatrelay/errors"
	"github.com/chatrelay/chatrelay/internal/mylog"
	"github.com/chatrelay/chatrelay/provider"
	"github.com/chatrelay/chatrelay/router"
	"github.com/chatrelay/chatrelay/thread"
)

// imageOnlyPrompt substitutes for the user text when a turn carries
// only an image.
const imageOnlyPrompt = "Analyze this image"

type (
	// TurnRequest is one user submission. Image, when set, is a browser
	// data-URL or a bare base64 payload; its bytes are request-local and
	// never persisted.
	TurnRequest struct {
		ThreadID  string
		UserID    string
		UserEmail string
		Message   string
		Image     string
	}

	// Service orchestrates a turn: validate, route, invoke the provider,
	// then append the user/assistant pair in one transaction. Nothing is
	// persisted when the provider call fails.
	Service interface {
		HandleTurn(ctx context.Context, req TurnRequest) (reply string, err error)
	}

	service struct {
		logger   *mylog.Logger
		threads  thread.Manager
		selector *router.Selector
		text     provider.Adapter
		vision   provider.Adapter
	}
)

func NewService(
	logger *mylog.Logger,
	threads thread.Manager,
	selector *router.Selector,
	text provider.Adapter,
	vision provider.Adapter,
) Service {
	return &service{
		logger:   logger,
		threads:  threads,
		selector: selector,
		text:     text,
		vision:   vision,
	}
}

func (s *service) HandleTurn(ctx context.Context, req TurnRequest) (string, error) {
	if req.ThreadID == "" || req.UserID == "" || req.UserEmail == "" {
		return "", errors.Wrapf(errors.ErrInvalidParams, "missing required fields: threadId, userId, userEmail")
	}
	if req.Message == "" && req.Image == "" {
		return "", errors.Wrapf(errors.ErrInvalidParams, "Either message or image must be provided")
	}

	text := req.Message
	if text == "" {
		text = imageOnlyPrompt
	}
	hasImage := req.Image != ""

	sel := s.selector.Select(text, hasImage)
	adapter := s.text
	if sel.Variant == provider.VariantVision {
		adapter = s.vision
	}

	s.logger.Debug("turn routed",
		"thread_id", req.ThreadID,
		"variant", sel.Variant,
		"tier", sel.Tier,
		"max_tokens", sel.MaxTokens,
		"has_image", hasImage,
	)

	reply, err := adapter.Invoke(ctx, provider.Turn{Text: text, Image: req.Image}, sel.Tier, sel.MaxTokens)
	if err != nil {
		return "", err
	}
	if reply == nil || reply.Text == "" {
		return "", errors.Wrapf(errors.ErrEmptyReply, "provider returned no usable content")
	}
	if reply.ConfigMissing {
		s.logger.Warn("vision credential missing, returning setup instructions", "thread_id", req.ThreadID)
	}

	userMsg := entity.Message{Role: entity.RoleUser, Content: text}
	if hasImage {
		mimeType, data := provider.ParseImageData(req.Image)
		userMsg.Attachment = datatypes.NewJSONType(entity.Attachment{
			MIMEType:  mimeType,
			SizeBytes: base64.StdEncoding.DecodedLen(len(data)),
		})
	}
	assistantMsg := entity.Message{Role: entity.RoleAssistant, Content: reply.Text}

	key := thread.Key{ThreadID: req.ThreadID, UserID: req.UserID}
	if _, err := s.threads.AppendTurn(ctx, key, req.UserEmail, userMsg, assistantMsg); err != nil {
		// The reply was already computed upstream; surface the store
		// failure distinctly so the caller knows the thread may be stale.
		return "", errors.Wrapf(errors.ErrPersistence, "failed to persist turn: %v", err)
	}

	return reply.Text, nil
}

func init() {
	din.RegisterT(func(c *din.Container) (Service, error) {
		logger, err := din.Get[*mylog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}
		threads, err := din.GetT[thread.Manager](c)
		if err != nil {
			return nil, err
		}
		selector, err := din.GetT[*router.Selector](c)
		if err != nil {
			return nil, err
		}
		text, err := din.GetT[*provider.GroqClient](c)
		if err != nil {
			return nil, err
		}
		vision, err := din.GetT[*provider.GeminiClient](c)
		if err != nil {
			return nil, err
		}

		return NewService(logger, threads, selector, text, vision), nil
	})
}
