package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tasfiat-brain/internal/dto"
	"tasfiat-brain/internal/reply"
	"tasfiat-brain/pkg/config"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var ErrChatwootNotConfigured = errors.New("chatwoot account id or api token missing")

const (
	eventMessageCreated = "message_created"
	messageIncoming     = "incoming"
	labelPrice          = "سعر"
)

// Messenger posts replies and labels into a chat conversation.
type Messenger interface {
	CreateMessage(ctx context.Context, conversationID int64, content string) error
	SetLabels(ctx context.Context, conversationID int64, labels []string) error
}

// ChatwootClient talks to the Chatwoot application API.
type ChatwootClient struct {
	baseURL   string
	accountID string
	token     string
	http      *http.Client
}

func NewChatwootClient(cfg *config.ChatwootConfig) *ChatwootClient {
	return &ChatwootClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		accountID: cfg.AccountID,
		token:     cfg.APIToken,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *ChatwootClient) Configured() bool {
	return c.accountID != "" && c.token != ""
}

func (c *ChatwootClient) CreateMessage(ctx context.Context, conversationID int64, content string) error {
	return c.post(ctx, conversationID, "messages", dto.ChatwootMessage{
		Content:           content,
		MessageType:       "outgoing",
		ContentType:       "text",
		ContentAttributes: map[string]any{},
	})
}

func (c *ChatwootClient) SetLabels(ctx context.Context, conversationID int64, labels []string) error {
	return c.post(ctx, conversationID, "labels", dto.ChatwootLabels{Labels: labels})
}

func (c *ChatwootClient) post(ctx context.Context, conversationID int64, resource string, body any) error {
	if !c.Configured() {
		return ErrChatwootNotConfigured
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode chatwoot %s: %w", resource, err)
	}

	url := fmt.Sprintf("%s/api/v1/accounts/%s/conversations/%d/%s", c.baseURL, c.accountID, conversationID, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create chatwoot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post chatwoot %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("chatwoot %s failed with status %d: %s", resource, resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}

// ChatwootService handles webhook events: it filters them, answers
// incoming customer messages and posts the reply back.
type ChatwootService struct {
	messenger Messenger
	queries   *QueryService
	seen      *lru.Cache[int64, struct{}]
	logger    *zap.Logger
}

func NewChatwootService(messenger Messenger, queries *QueryService, seenCapacity int, logger *zap.Logger) (*ChatwootService, error) {
	if seenCapacity <= 0 {
		seenCapacity = 5000
	}
	seen, err := lru.New[int64, struct{}](seenCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create seen message cache: %w", err)
	}
	return &ChatwootService{
		messenger: messenger,
		queries:   queries,
		seen:      seen,
		logger:    logger,
	}, nil
}

// HandleWebhook never fails for events it decides to skip. A returned error
// means the answer was computed but could not be delivered; the response
// still describes the answer.
func (s *ChatwootService) HandleWebhook(ctx context.Context, ev dto.ChatwootWebhook) (dto.WebhookResponse, error) {
	switch {
	case ev.Event != eventMessageCreated:
		return ignored("event"), nil
	case ev.MessageType != messageIncoming:
		return ignored("non_incoming"), nil
	case ev.Private:
		return ignored("private"), nil
	case ev.Conversation.ID == 0 || strings.TrimSpace(ev.Content) == "":
		return ignored("missing_content_or_conversation"), nil
	}

	if ev.ID != 0 {
		if seen, _ := s.seen.ContainsOrAdd(ev.ID, struct{}{}); seen {
			return ignored("duplicate"), nil
		}
	}

	result, err := s.queries.Answer(ctx, ev.Content, fmt.Sprint(ev.Conversation.ID))
	if errors.Is(err, ErrKnowledgeNotConfigured) {
		return ignored("knowledge_not_configured"), nil
	}
	if err != nil {
		return dto.WebhookResponse{OK: false, Error: "answer_failed"}, err
	}

	resp := dto.WebhookResponse{
		OK:     true,
		Found:  result.Found,
		Tags:   result.Tags,
		Labels: LabelsForTags(result.Tags),
	}

	if err := s.messenger.CreateMessage(ctx, ev.Conversation.ID, result.Reply); err != nil {
		resp.OK = false
		resp.Error = "delivery_failed"
		return resp, fmt.Errorf("failed to deliver reply: %w", err)
	}
	resp.Replied = true

	if len(resp.Labels) > 0 {
		if err := s.messenger.SetLabels(ctx, ev.Conversation.ID, resp.Labels); err != nil {
			resp.OK = false
			resp.Error = "labels_failed"
			return resp, fmt.Errorf("failed to set labels: %w", err)
		}
	}

	s.logger.Info("Webhook message answered",
		zap.Int64("conversation_id", ev.Conversation.ID),
		zap.Int64("message_id", ev.ID),
		zap.Bool("found", result.Found),
		zap.Strings("labels", resp.Labels),
	)
	return resp, nil
}

// LabelsForTags maps result tags onto the conversation labels used in the
// inbox. Product and price answers win over the other labels.
func LabelsForTags(tags []string) []string {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	has := func(keys ...string) bool {
		for _, k := range keys {
			if _, ok := set[k]; ok {
				return true
			}
		}
		return false
	}

	switch {
	case has(reply.TagResult, reply.TagLeadProduct, reply.TagSelection, reply.TagPriceInquiry):
		return []string{labelPrice}
	case has(reply.TagOutOfKnowledge):
		return []string{reply.TagOutOfKnowledge}
	case has(reply.TagEscalation):
		return []string{reply.TagEscalation}
	}
	return nil
}

func ignored(reason string) dto.WebhookResponse {
	return dto.WebhookResponse{OK: true, Ignored: reason}
}
