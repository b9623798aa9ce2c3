package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jcooky/go-din"
	"github.com/stretchr/testify/suite"

	"github.com/chatrelay/chatrelay/chat"
	"github.com/chatrelay/chatrelay/config"
	"github.com/chatrelay/chatrelay/errors"
	"github.com/chatrelay/chatrelay/internal/mylog"
	"github.com/chatrelay/chatrelay/internal/mytesting"
	"github.com/chatrelay/chatrelay/provider"
	"github.com/chatrelay/chatrelay/router"
	"github.com/chatrelay/chatrelay/server"
	"github.com/chatrelay/chatrelay/thread"
)

type fixedAdapter struct {
	reply *provider.Reply
	err   error
}

func (a *fixedAdapter) Invoke(context.Context, provider.Turn, provider.Tier, int) (*provider.Reply, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.reply, nil
}

type HandlerTestSuite struct {
	mytesting.Suite

	text    *fixedAdapter
	vision  *fixedAdapter
	handler http.Handler
}

func (s *HandlerTestSuite) SetupTest() {
	s.Suite.SetupTest()

	s.text = &fixedAdapter{reply: &provider.Reply{Text: "a canned reply"}}
	s.vision = &fixedAdapter{reply: &provider.Reply{Text: "a canned vision reply"}}

	threads := din.MustGetT[thread.Manager](s.Container)
	selector := router.NewSelector(config.DefaultRoutingConfig(), &config.ModelConfig{
		MaxTokens:               1024,
		VisionMaxTokens:         1500,
		VisionMaxTokensDetailed: 2048,
	})
	din.SetT[chat.Service](s.Container,
		chat.NewService(mylog.NewLogger("error", "json"), threads, selector, s.text, s.vision))

	handler, err := server.NewHandler(s.Container)
	s.Require().NoError(err)
	s.handler = handler
}

func (s *HandlerTestSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reqBody = bytes.NewBuffer(payload)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, target, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerTestSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(v))
}

func (s *HandlerTestSuite) postTurn(message string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/", map[string]string{
		"threadId":  "t1",
		"userId":    "u1",
		"userEmail": "u1@x.com",
		"message":   message,
	})
}

func (s *HandlerTestSuite) TestListThreadsRequiresUserID() {
	rec := s.do(http.MethodGet, "/threads", nil)
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Require().Equal("userId is required", body["error"])
}

func (s *HandlerTestSuite) TestFirstTurnCreatesThread() {
	rec := s.postTurn("Hi")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Require().Equal("a canned reply", body["reply"])

	rec = s.do(http.MethodGet, "/threads?userId=u1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var threads []server.ThreadSummary
	s.decode(rec, &threads)
	s.Require().Len(threads, 1)
	s.Require().Equal("t1", threads[0].ThreadID)
	s.Require().Equal("Hi", threads[0].Title)

	rec = s.do(http.MethodGet, "/threads/t1?userId=u1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var messages []server.MessageView
	s.decode(rec, &messages)
	s.Require().Len(messages, 2)
	s.Require().Equal("user", messages[0].Role)
	s.Require().Equal("Hi", messages[0].Content)
	s.Require().Equal("assistant", messages[1].Role)
	s.Require().Equal("a canned reply", messages[1].Content)
}

func (s *HandlerTestSuite) TestTurnRequiresMessageOrImage() {
	rec := s.postTurn("")
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Require().Equal("Either message or image must be provided", body["error"])

	rec = s.do(http.MethodGet, "/threads?userId=u1", nil)
	var threads []server.ThreadSummary
	s.decode(rec, &threads)
	s.Require().Empty(threads)
}

func (s *HandlerTestSuite) TestTurnRequiresIdentityFields() {
	rec := s.do(http.MethodPost, "/", map[string]string{"threadId": "t1", "message": "hi"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Require().Contains(body["error"], "missing required fields")
}

func (s *HandlerTestSuite) TestUpstreamFailureMapsToBadGateway() {
	s.text.err = errors.Wrapf(errors.ErrUpstream, "text API error: boom")

	rec := s.postTurn("Hi")
	s.Require().Equal(http.StatusBadGateway, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Require().Equal("text API error: boom", body["error"])
}

func (s *HandlerTestSuite) TestUpstreamTimeoutMapsToGatewayTimeout() {
	s.text.err = errors.Wrapf(errors.ErrUpstreamTimeout, "text request timed out")

	rec := s.postTurn("Hi")
	s.Require().Equal(http.StatusGatewayTimeout, rec.Code)
}

func (s *HandlerTestSuite) TestGetUnknownThreadReturnsNotFound() {
	rec := s.do(http.MethodGet, "/threads/missing?userId=u1", nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Require().Equal("Thread not found", body["error"])
}

func (s *HandlerTestSuite) TestDeleteThread() {
	s.postTurn("Hi")

	rec := s.do(http.MethodDelete, "/threads/t1?userId=u1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Require().Equal("Thread deleted successfully", body["success"])

	rec = s.do(http.MethodDelete, "/threads/t1?userId=u1", nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerTestSuite) TestDeleteScopedByUser() {
	s.postTurn("Hi")

	rec := s.do(http.MethodDelete, "/threads/t1?userId=somebody-else", nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/threads/t1?userId=u1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
}

func TestHandler(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
