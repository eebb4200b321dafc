package service

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/types"
)

func TestNormalizeRejectsEmptyQuestionText(t *testing.T) {
	s := NewNormalizeService(logger.NewNop())

	_, err := s.Normalize(types.RawQuestionRecord{QuestionText: "   "}, types.FormatLLM)
	if !errors.Is(err, types.ErrEmptyQuestionText) {
		t.Fatalf("expected ErrEmptyQuestionText, got %v", err)
	}
}

func TestNormalizeAnswerLetters(t *testing.T) {
	s := NewNormalizeService(logger.NewNop())

	tests := []struct {
		letter string
		want   *int
	}{
		{"A", intPtr(0)},
		{"b", intPtr(1)},
		{" C ", intPtr(2)},
		{"D", intPtr(3)},
		{"E", intPtr(4)},
		{"F", nil},
		{"", nil},
		{"AB", nil},
	}
	for _, tt := range tests {
		q, err := s.Normalize(types.RawQuestionRecord{
			QuestionText:  "What is 2+2?",
			CorrectOption: tt.letter,
		}, types.FormatLLM)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tt.letter, err)
		}
		if !intPtrEqual(q.CorrectAnswer, tt.want) {
			t.Errorf("letter %q: got %v, want %v", tt.letter, fmtIntPtr(q.CorrectAnswer), fmtIntPtr(tt.want))
		}
	}
}

func TestNormalizeOptionPrefixStripIsPDFOnly(t *testing.T) {
	s := NewNormalizeService(logger.NewNop())
	options := json.RawMessage(`["A. Paris", "B. London", "C. Berlin"]`)

	pdf, err := s.Normalize(types.RawQuestionRecord{QuestionText: "Capital of France?", Options: options}, types.FormatPDF)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Paris", "London", "Berlin"}; !reflect.DeepEqual(pdf.Options, want) {
		t.Errorf("pdf options = %v, want %v", pdf.Options, want)
	}

	llm, err := s.Normalize(types.RawQuestionRecord{QuestionText: "Capital of France?", Options: options}, types.FormatLLM)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"A. Paris", "B. London", "C. Berlin"}; !reflect.DeepEqual(llm.Options, want) {
		t.Errorf("llm options = %v, want %v", llm.Options, want)
	}
}

func TestNormalizeLetterAndPrefixAgree(t *testing.T) {
	s := NewNormalizeService(logger.NewNop())

	q, err := s.Normalize(types.RawQuestionRecord{
		QuestionText:  "Capital of France?",
		Options:       json.RawMessage(`["A. London", "B. Paris"]`),
		CorrectOption: "B",
	}, types.FormatPDF)
	if err != nil {
		t.Fatal(err)
	}
	if !intPtrEqual(q.CorrectAnswer, intPtr(1)) {
		t.Fatalf("correct answer = %v, want 1", fmtIntPtr(q.CorrectAnswer))
	}
	if q.Options[*q.CorrectAnswer] != "Paris" {
		t.Errorf("options[1] = %q, want Paris", q.Options[*q.CorrectAnswer])
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	s := NewNormalizeService(logger.NewNop())

	first, err := s.Normalize(types.RawQuestionRecord{
		QuestionText:  "Capital of France?",
		Options:       json.RawMessage(`["A. Paris", "B. London"]`),
		CorrectOption: "A",
		SkillTags:     json.RawMessage(`"geography, europe"`),
		EstimatedTime: json.RawMessage(`"2"`),
	}, types.FormatPDF)
	if err != nil {
		t.Fatal(err)
	}

	// Feed the canonical output back through as a raw record.
	optionsJSON, _ := json.Marshal(first.Options)
	tagsJSON, _ := json.Marshal(first.SkillTags)
	second, err := s.Normalize(types.RawQuestionRecord{
		QuestionText:  first.QuestionText,
		Options:       optionsJSON,
		CorrectOption: "A",
		Difficulty:    first.Difficulty,
		BloomLevel:    first.BloomLevel,
		SkillTags:     tagsJSON,
		EstimatedTime: json.RawMessage(`"2"`),
		Language:      first.Language,
	}, types.FormatPDF)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Options, second.Options) {
		t.Errorf("options changed on second pass: %v vs %v", first.Options, second.Options)
	}
	if !reflect.DeepEqual(first.SkillTags, second.SkillTags) {
		t.Errorf("skill tags changed on second pass: %v vs %v", first.SkillTags, second.SkillTags)
	}
}

func TestNormalizeStringListCoercion(t *testing.T) {
	s := NewNormalizeService(logger.NewNop())

	q, err := s.Normalize(types.RawQuestionRecord{
		QuestionText: "q",
		SkillTags:    json.RawMessage(`"algebra, geometry , "`),
		Keywords:     json.RawMessage(`["ratios","percentages"]`),
	}, types.FormatLLM)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"algebra", "geometry"}; !reflect.DeepEqual(q.SkillTags, want) {
		t.Errorf("skill tags = %v, want %v", q.SkillTags, want)
	}
	if want := []string{"ratios", "percentages"}; !reflect.DeepEqual(q.Keywords, want) {
		t.Errorf("keywords = %v, want %v", q.Keywords, want)
	}
}

func TestNormalizeEstimatedTime(t *testing.T) {
	s := NewNormalizeService(logger.NewNop())

	tests := []struct {
		raw  string
		want *int
	}{
		{`"5"`, intPtr(5)},
		{`5`, intPtr(5)},
		{`"abc"`, nil},
		{`"5 minutes"`, nil},
		{`5.5`, nil},
		{`""`, nil},
		{``, nil},
		{`null`, nil},
	}
	for _, tt := range tests {
		var raw json.RawMessage
		if tt.raw != "" {
			raw = json.RawMessage(tt.raw)
		}
		q, err := s.Normalize(types.RawQuestionRecord{
			QuestionText:  "q",
			EstimatedTime: raw,
		}, types.FormatLLM)
		if err != nil {
			t.Fatalf("raw %q: %v", tt.raw, err)
		}
		if !intPtrEqual(q.EstimatedTime, tt.want) {
			t.Errorf("raw %q: got %v, want %v", tt.raw, fmtIntPtr(q.EstimatedTime), fmtIntPtr(tt.want))
		}
	}
}

func TestNormalizeDefaults(t *testing.T) {
	s := NewNormalizeService(logger.NewNop())

	q, err := s.Normalize(types.RawQuestionRecord{QuestionText: "q"}, types.FormatLLM)
	if err != nil {
		t.Fatal(err)
	}
	if q.Difficulty != "Medium" {
		t.Errorf("difficulty = %q, want Medium", q.Difficulty)
	}
	if q.BloomLevel != "Knowledge" {
		t.Errorf("bloom level = %q, want Knowledge", q.BloomLevel)
	}
	if q.Language != "English" {
		t.Errorf("language = %q, want English", q.Language)
	}
	if q.SkillTags == nil || len(q.SkillTags) != 0 {
		t.Errorf("skill tags = %v, want empty slice", q.SkillTags)
	}
}

func TestNormalizeBatchCountsSkips(t *testing.T) {
	s := NewNormalizeService(logger.NewNop())

	raws := []types.RawQuestionRecord{
		{QuestionText: "first"},
		{QuestionText: ""},
		{QuestionText: "third"},
		{QuestionText: "  "},
	}
	out, skipped := s.NormalizeBatch(raws, types.FormatLLM)
	if len(out) != 2 {
		t.Errorf("got %d records, want 2", len(out))
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}

func TestFromCSVRow(t *testing.T) {
	header := []string{"question_text", "options", "correct_answer", "subject", "topic", "estimated_time"}
	row := []string{"What is 2+2?", "3,4,5", "B", "Math", "Arithmetic", "1"}

	raw := FromCSVRow(header, row)
	s := NewNormalizeService(logger.NewNop())
	q, err := s.Normalize(raw, types.FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"3", "4", "5"}; !reflect.DeepEqual(q.Options, want) {
		t.Errorf("options = %v, want %v", q.Options, want)
	}
	if !intPtrEqual(q.CorrectAnswer, intPtr(1)) {
		t.Errorf("correct answer = %v, want 1", fmtIntPtr(q.CorrectAnswer))
	}
	if q.Subject != "Math" || q.Topic != "Arithmetic" {
		t.Errorf("subject/topic = %q/%q", q.Subject, q.Topic)
	}
	if !intPtrEqual(q.EstimatedTime, intPtr(1)) {
		t.Errorf("estimated time = %v, want 1", fmtIntPtr(q.EstimatedTime))
	}
}

func intPtr(v int) *int { return &v }

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fmtIntPtr(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
