package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/types"
)

// Defaults applied when a raw record omits the field.
const (
	defaultDifficulty = "Medium"
	defaultBloomLevel = "Knowledge"
	defaultLanguage   = "English"
)

// optionLetterIndex maps an answer letter to its option index.
var optionLetterIndex = map[string]int{
	"A": 0, "B": 1, "C": 2, "D": 3, "E": 4,
}

// optionPrefix matches a single-letter option label like "B. " at the
// start of an option pulled out of PDF text.
var optionPrefix = regexp.MustCompile(`^[A-Za-z]\.\s*`)

// NormalizeService coerces raw question records from any source into
// canonical questions. Normalization is idempotent: running an already
// canonical record through again changes nothing.
type NormalizeService struct {
	logger *logger.Logger
}

func NewNormalizeService(log *logger.Logger) *NormalizeService {
	return &NormalizeService{logger: log.With("service", "normalize")}
}

// Normalize converts one raw record. The only hard failure is empty
// question text; every other malformed field degrades to its default.
func (s *NormalizeService) Normalize(raw types.RawQuestionRecord, format types.SourceFormat) (*types.CanonicalQuestion, error) {
	text := strings.TrimSpace(raw.QuestionText)
	if text == "" {
		return nil, types.ErrEmptyQuestionText
	}

	q := &types.CanonicalQuestion{
		QuestionText:  text,
		Options:       normalizeOptions(raw.Options, format),
		CorrectAnswer: answerIndex(raw.CorrectOption),
		Difficulty:    defaulted(raw.Difficulty, defaultDifficulty),
		BloomLevel:    defaulted(raw.BloomLevel, defaultBloomLevel),
		SkillTags:     coerceStringList(raw.SkillTags),
		Keywords:      coerceStringList(raw.Keywords),
		Topic:         strings.TrimSpace(raw.Topic),
		Subject:       strings.TrimSpace(raw.Subject),
		Explanation:   strings.TrimSpace(raw.Explanation),
		EstimatedTime: parseEstimatedTime(raw.EstimatedTime),
		SourceType:    strings.TrimSpace(raw.SourceType),
		Language:      defaulted(raw.Language, defaultLanguage),
	}
	return q, nil
}

// NormalizeBatch converts a slice of raw records, dropping the ones that
// fail and returning the skip count alongside the survivors.
func (s *NormalizeService) NormalizeBatch(raws []types.RawQuestionRecord, format types.SourceFormat) ([]types.CanonicalQuestion, int) {
	out := make([]types.CanonicalQuestion, 0, len(raws))
	skipped := 0
	for i, raw := range raws {
		q, err := s.Normalize(raw, format)
		if err != nil {
			skipped++
			s.logger.Warn("skipping record", "index", i, "error", err)
			continue
		}
		out = append(out, *q)
	}
	return out, skipped
}

// FromCSVRow maps one CSV row into a raw record using the header for
// field names. Unknown columns are ignored.
func FromCSVRow(header, row []string) types.RawQuestionRecord {
	var raw types.RawQuestionRecord
	for i, col := range header {
		if i >= len(row) {
			break
		}
		val := row[i]
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "question_text", "question":
			raw.QuestionText = val
		case "options":
			raw.Options = quoteJSON(val)
		case "correct_answer", "correct_option", "answer":
			raw.CorrectOption = val
		case "difficulty":
			raw.Difficulty = val
		case "bloom_level":
			raw.BloomLevel = val
		case "skill_tags", "tags":
			raw.SkillTags = quoteJSON(val)
		case "keywords":
			raw.Keywords = quoteJSON(val)
		case "topic":
			raw.Topic = val
		case "subject":
			raw.Subject = val
		case "explanation":
			raw.Explanation = val
		case "estimated_time":
			raw.EstimatedTime = quoteJSON(val)
		case "source_type":
			raw.SourceType = val
		case "language":
			raw.Language = val
		}
	}
	return raw
}

func quoteJSON(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// normalizeOptions accepts either a JSON array of strings or a single
// comma-joined string. PDF-sourced options additionally lose a leading
// letter label.
func normalizeOptions(raw json.RawMessage, format types.SourceFormat) []string {
	var opts []string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &opts); err != nil {
			var joined string
			if err := json.Unmarshal(raw, &joined); err == nil {
				for _, part := range strings.Split(joined, ",") {
					if p := strings.TrimSpace(part); p != "" {
						opts = append(opts, p)
					}
				}
			}
		}
	}

	out := make([]string, 0, len(opts))
	for _, opt := range opts {
		opt = strings.TrimSpace(opt)
		if format == types.FormatPDF {
			opt = optionPrefix.ReplaceAllString(opt, "")
		}
		out = append(out, opt)
	}
	return out
}

// answerIndex maps an answer letter A-E to an option index. Anything else
// means the correct answer is unknown.
func answerIndex(letter string) *int {
	idx, ok := optionLetterIndex[strings.ToUpper(strings.TrimSpace(letter))]
	if !ok {
		return nil
	}
	return &idx
}

// coerceStringList accepts a JSON array of strings or a comma-separated
// string. Arrays pass through unchanged; strings are split and trimmed.
func coerceStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return []string{}
	}
	out := []string{}
	for _, part := range strings.Split(joined, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseEstimatedTime accepts whatever the source put in the field and
// keeps it only when its decimal rendering is all digits. It never fails;
// garbage becomes nil.
func parseEstimatedTime(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	var rendered string
	switch t := v.(type) {
	case string:
		rendered = strings.TrimSpace(t)
	case float64:
		rendered = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		rendered = fmt.Sprintf("%v", t)
	}
	if rendered == "" {
		return nil
	}
	for _, r := range rendered {
		if r < '0' || r > '9' {
			return nil
		}
	}
	n, err := strconv.Atoi(rendered)
	if err != nil {
		return nil
	}
	return &n
}

func defaulted(val, def string) string {
	if v := strings.TrimSpace(val); v != "" {
		return v
	}
	return def
}
