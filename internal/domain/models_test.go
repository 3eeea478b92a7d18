package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	cases := []struct {
		name string
		q    Question
		ok   bool
	}{
		{"valid", Question{Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 4}, true},
		{"blank texts", Question{Options: []string{"", "", "", ""}, CorrectAnswer: 1}, true},
		{"three options", Question{Options: []string{"a", "b", "c"}, CorrectAnswer: 1}, false},
		{"answer zero", Question{Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0}, false},
		{"answer five", Question{Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 5}, false},
	}
	for _, tc := range cases {
		err := tc.q.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidQuestion) {
			t.Fatalf("%s: expected ErrInvalidQuestion, got %v", tc.name, err)
		}
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(fmt.Errorf("question 2: %w", ErrInvalidQuestion)) {
		t.Fatalf("wrapped validation error not recognised")
	}
	for _, err := range []error{ErrQuizUnavailable, ErrDuplicateSubmission, ErrGeneratorNotConfigured} {
		if IsValidation(err) {
			t.Fatalf("%v must not be a validation error", err)
		}
	}
	if !errors.Is(ErrGeneratorNotConfigured, ErrGeneration) {
		t.Fatalf("not-configured must be a generation error")
	}
}
