package service

import (
	"context"

	"github.com/prepstack/qbank-be/types"
)

// QuestionExtractor pulls structured question records out of raw exam
// text. Implementations return the model's records untouched; the
// normalizer deals with whatever shape comes back.
type QuestionExtractor interface {
	ExtractQuestions(ctx context.Context, rawText string) ([]types.RawQuestionRecord, error)
}

// ChatService is a conversational model, optionally with tool use.
type ChatService interface {
	Chat(ctx context.Context, messages []types.Message) (*types.Message, error)
}
