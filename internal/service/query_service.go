package service

import (
	"context"
	"unicode/utf8"

	"tasfiat-brain/internal/reply"

	"go.uber.org/zap"
)

// DefaultConversationID is used for /search calls that carry no
// conversation, so numbered choices still work from the API.
const DefaultConversationID = "api-test"

// QueryService runs one customer message through the composer.
type QueryService struct {
	knowledge *KnowledgeService
	composer  *reply.Composer
	maxRunes  int
	logger    *zap.Logger
}

func NewQueryService(knowledge *KnowledgeService, composer *reply.Composer, maxRunes int, logger *zap.Logger) *QueryService {
	return &QueryService{
		knowledge: knowledge,
		composer:  composer,
		maxRunes:  maxRunes,
		logger:    logger,
	}
}

// Answer returns ErrKnowledgeNotConfigured when no knowledge source exists.
// A source that is configured but failing still yields an answer: intent
// rules work without knowledge and search degrades to no match.
func (s *QueryService) Answer(ctx context.Context, text, conversationID string) (reply.Result, error) {
	if !s.knowledge.Configured() {
		return reply.Result{}, ErrKnowledgeNotConfigured
	}
	if err := s.knowledge.Ensure(ctx); err != nil {
		s.logger.Warn("Answering without knowledge", zap.Error(err))
	}

	text = truncateRunes(text, s.maxRunes)
	decision, rule := s.composer.Decide(reply.NewMessage(text, conversationID))
	result := s.composer.Compose(decision)

	s.logger.Debug("Query answered",
		zap.String("conversation_id", conversationID),
		zap.String("rule", rule),
		zap.Bool("found", result.Found),
		zap.Strings("tags", result.Tags),
	)
	return result, nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
