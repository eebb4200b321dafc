package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/prepstack/qbank-be/types"
)

// GeminiService is the alternate question extractor. It rotates through
// the configured API keys when a request fails, which rides out per-key
// quota exhaustion.
type GeminiService struct {
	apiKeys    []string
	currentKey int
	client     *genai.Client
	model      *genai.GenerativeModel
	modelName  string
	mu         sync.Mutex
}

func NewGeminiService(apiKeys []string, modelName string) (*GeminiService, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("no API keys provided")
	}

	service := &GeminiService{
		apiKeys:   apiKeys,
		modelName: modelName,
	}
	if err := service.initClient(); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *GeminiService) initClient() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(s.apiKeys[s.currentKey]))
	if err != nil {
		return err
	}
	s.client = client
	s.model = client.GenerativeModel(s.modelName)
	return nil
}

func (s *GeminiService) rotateAPIKey() error {
	s.mu.Lock()
	s.currentKey = (s.currentKey + 1) % len(s.apiKeys)
	if err := s.client.Close(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.initClient()
}

// ExtractQuestions asks Gemini for the same strict JSON array the OpenAI
// extractor produces. One key rotation is attempted on failure.
func (s *GeminiService) ExtractQuestions(ctx context.Context, rawText string) ([]types.RawQuestionRecord, error) {
	prompt := extractionSystemPrompt +
		"\n\nExtract questions from the following exam text and format them as a strict JSON array of question objects. " +
		"Do NOT include any explanation outside the JSON.\n\nTEXT:\n" + rawText

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if rotateErr := s.rotateAPIKey(); rotateErr != nil {
			return nil, rotateErr
		}
		resp, err = s.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
	}

	content := responseText(resp)
	if content == "" {
		return nil, errors.New("no response generated")
	}

	var records []types.RawQuestionRecord
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &records); err != nil {
		return nil, fmt.Errorf("failed to parse model output as JSON array: %w", err)
	}
	return records, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	content := ""
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content += string(text)
			}
		}
	}
	return content
}
