package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/prepstack/qbank-be/database"
	"github.com/prepstack/qbank-be/types"
)

var SystemMessageTutor = openai.ChatCompletionMessage{
	Role:    openai.ChatMessageRoleSystem,
	Content: "You are an expert exam tutor for competitive government exams. Answer student questions accurately and concisely. If you do not know the answer, search the study material database before responding.",
}

const extractionSystemPrompt = "You are an intelligent assistant. Extract multiple-choice questions (MCQs) from raw exam text " +
	"and output ONLY a valid JSON array. Do not include any other text or commentary. Each question " +
	"should include: question_text, options (list), correct_option (A/B/C/D), explanation, difficulty, " +
	"bloom_level, skill_tags, keywords, topic, subject, language, estimated_time, and source_type."

const ragPromptTemplate = `You are an expert exam tutor. Use the following information from the study materials to answer the student's question.

Context information:
%s

Student's question: %s

Please provide a detailed, accurate answer based on the context information. If the context doesn't contain enough information to answer the question completely, clearly state what information is missing and provide the best answer you can with the available information. Include relevant examples and explanations where appropriate.`

// OpenAIService wraps the chat completion API for question extraction,
// doubt answering and explanation generation. Tools registered through
// RegisterFunctionCall are offered on every Chat call.
type OpenAIService struct {
	client        *openai.Client
	functionsCall map[string]types.FunctionHandler
	tools         []openai.Tool
	model         string
}

func NewOpenAIService(baseURL, apiKey, model string) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIService{
		client:        openai.NewClientWithConfig(config),
		functionsCall: make(map[string]types.FunctionHandler),
		tools:         make([]openai.Tool, 0),
		model:         model,
	}
}

// ExtractQuestions asks the model for a strict JSON array of question
// records. A response that does not parse is a hard failure; there is no
// retry or repair pass.
func (s *OpenAIService) ExtractQuestions(ctx context.Context, rawText string) ([]types.RawQuestionRecord, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				Content: "Extract questions from the following exam text and format them as a strict JSON array of question objects. " +
					"Do NOT include any explanation outside the JSON.\n\nTEXT:\n" + rawText,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response generated")
	}

	raw := stripCodeFence(resp.Choices[0].Message.Content)
	var records []types.RawQuestionRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("failed to parse model output as JSON array: %w", err)
	}
	return records, nil
}

// AnswerDoubt answers a student question grounded on retrieved chunks.
func (s *OpenAIService) AnswerDoubt(ctx context.Context, query string, docs []database.Document) (string, error) {
	var contexts []string
	for i, doc := range docs {
		source := doc.Metadata.Source
		if source == "" {
			source = "Unknown"
		}
		contexts = append(contexts, fmt.Sprintf("[Document %d - %s - %s]\n%s", i+1, source, doc.Metadata.Title, doc.Content))
	}
	prompt := fmt.Sprintf(ragPromptTemplate, strings.Join(contexts, "\n\n"), query)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response generated")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateExplanation produces a student-facing explanation from a
// prepared prompt.
func (s *OpenAIService) GenerateExplanation(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.5,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response generated")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *OpenAIService) Chat(ctx context.Context, messages []types.Message) (*types.Message, error) {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	openaiMessages = append(openaiMessages, SystemMessageTutor)
	for _, msg := range messages {
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: msg.Content,
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages: openaiMessages,
		Tools:    s.tools,
		Model:    s.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response generated")
	}

	if resp.Choices[0].FinishReason == openai.FinishReasonToolCalls {
		resp, err = s.handleFunctionCall(ctx, openaiMessages, resp)
		if err != nil {
			return nil, err
		}
	}

	return &types.Message{
		Role:    "assistant",
		Content: resp.Choices[0].Message.Content,
	}, nil
}

func (s *OpenAIService) RegisterFunctionCall(name, description string, params jsonschema.Definition, handler types.FunctionHandler) {
	f := openai.FunctionDefinition{
		Name:        name,
		Description: description,
		Parameters:  params,
	}
	s.functionsCall[name] = handler
	s.tools = append(s.tools, openai.Tool{
		Type:     openai.ToolTypeFunction,
		Function: &f,
	})
}

// RegisterMaterialSearchTool lets the chat model search the study
// material store mid-conversation.
func (s *OpenAIService) RegisterMaterialSearchTool(store database.VectorDatabase) {
	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"queries": {
				Type:        jsonschema.Array,
				Description: "Search queries for the study material database",
				Items:       &jsonschema.Definition{Type: jsonschema.String},
			},
		},
		Required: []string{"queries"},
	}
	s.RegisterFunctionCall(
		"search_study_material",
		"Search the ingested study materials for passages relevant to the student's question.",
		params,
		func(ctx context.Context, args []byte) (interface{}, error) {
			var req struct {
				Queries []string `json:"queries"`
			}
			if err := json.Unmarshal(args, &req); err != nil {
				return nil, err
			}
			docs, _, err := store.SearchSimilar(ctx, req.Queries, 3)
			if err != nil {
				return nil, err
			}
			out, err := json.Marshal(docs)
			if err != nil {
				return nil, err
			}
			return string(out), nil
		},
	)
}

func (s *OpenAIService) handleFunctionCall(ctx context.Context, openaiMessages []openai.ChatCompletionMessage, resp openai.ChatCompletionResponse) (openai.ChatCompletionResponse, error) {
	openaiMessages = append(openaiMessages, resp.Choices[0].Message)
	for _, toolCall := range resp.Choices[0].Message.ToolCalls {
		if toolCall.Type != openai.ToolTypeFunction {
			continue
		}
		handler := s.functionsCall[toolCall.Function.Name]
		if handler == nil {
			return openai.ChatCompletionResponse{}, errors.New("no handler found for function call")
		}
		result, err := handler(ctx, []byte(toolCall.Function.Arguments))
		if err != nil {
			return openai.ChatCompletionResponse{}, err
		}
		content, ok := result.(string)
		if !ok {
			b, err := json.Marshal(result)
			if err != nil {
				return openai.ChatCompletionResponse{}, err
			}
			content = string(b)
		}
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    content,
			Name:       toolCall.Function.Name,
			ToolCallID: toolCall.ID,
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages: openaiMessages,
		Tools:    s.tools,
		Model:    s.model,
	})
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("no response generated")
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonToolCalls {
		return s.handleFunctionCall(ctx, openaiMessages, resp)
	}
	return resp, nil
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
