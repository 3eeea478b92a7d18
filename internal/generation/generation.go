// Package generation holds the provider-independent parts of AI question
// generation: the prompt, the response schema and the lenient response parser.
package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"quizloop-service/internal/domain"
)

// DefaultCount is the number of questions requested when the caller gives none.
const DefaultCount = 5

// Prompt asks for count four-option questions about the transcript.
func Prompt(transcript string, count int) string {
	if count <= 0 {
		count = DefaultCount
	}
	return fmt.Sprintf(`Based on the transcript below, write %d multiple-choice quiz questions.
Each question must test understanding of an important concept from the transcript.
Give every question exactly 4 options and mark the correct one with correct_answer, a number from 1 to 4 (1-based).
Write the questions in the same language as the transcript.
Respond with a JSON array of objects with the keys question_text, options and correct_answer.

Transcript:
---
%s
---
`, count, transcript)
}

// ParseQuestions reads a generator response. A payload that is not a JSON array
// fails with domain.ErrGeneration; individual malformed items are dropped and
// listed in Rejected rather than failing the batch.
func ParseQuestions(payload []byte) (domain.GenerationResult, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(stripFence(payload), &items); err != nil {
		return domain.GenerationResult{}, fmt.Errorf("%w: response is not a JSON array: %v", domain.ErrGeneration, err)
	}
	if items == nil {
		return domain.GenerationResult{}, fmt.Errorf("%w: response is not a JSON array", domain.ErrGeneration)
	}

	result := domain.GenerationResult{
		Accepted: make([]domain.GeneratedQuestion, 0, len(items)),
		Rejected: []domain.RejectedQuestion{},
	}
	for i, raw := range items {
		q, reason := parseItem(raw)
		if reason != "" {
			result.Rejected = append(result.Rejected, domain.RejectedQuestion{Index: i, Reason: reason})
			continue
		}
		result.Accepted = append(result.Accepted, q)
	}
	return result, nil
}

type candidate struct {
	QuestionText  *string       `json:"question_text"`
	Options       []interface{} `json:"options"`
	CorrectAnswer *float64      `json:"correct_answer"`
}

func parseItem(raw json.RawMessage) (domain.GeneratedQuestion, string) {
	var c candidate
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.GeneratedQuestion{}, "item is not a question object"
	}
	if c.QuestionText == nil || strings.TrimSpace(*c.QuestionText) == "" {
		return domain.GeneratedQuestion{}, "missing question_text"
	}
	if len(c.Options) != domain.OptionCount {
		return domain.GeneratedQuestion{}, fmt.Sprintf("expected %d options, got %d", domain.OptionCount, len(c.Options))
	}
	options := make([]string, 0, len(c.Options))
	for _, o := range c.Options {
		s, ok := o.(string)
		if !ok {
			return domain.GeneratedQuestion{}, "options must be strings"
		}
		options = append(options, s)
	}
	if c.CorrectAnswer == nil {
		return domain.GeneratedQuestion{}, "missing correct_answer"
	}
	answer := *c.CorrectAnswer
	if answer != math.Trunc(answer) || !domain.ValidOption(int(answer)) {
		return domain.GeneratedQuestion{}, fmt.Sprintf("correct_answer %v out of range", answer)
	}
	return domain.GeneratedQuestion{
		QuestionText:  strings.TrimSpace(*c.QuestionText),
		Options:       options,
		CorrectAnswer: int(answer),
	}, ""
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(payload []byte) []byte {
	trimmed := bytes.TrimSpace(payload)
	if !bytes.HasPrefix(trimmed, []byte("```")) {
		return trimmed
	}
	trimmed = bytes.TrimPrefix(trimmed, []byte("```"))
	if nl := bytes.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = bytes.TrimSuffix(bytes.TrimSpace(trimmed), []byte("```"))
	return bytes.TrimSpace(trimmed)
}
