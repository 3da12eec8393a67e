package types

import (
	"testing"
	"time"
)

func validQuestion() Question {
	return Question{
		ID:        "qst:ab12cd34",
		Prompt:    "What does the blank identifier do?",
		Answer:    "Discards a value without binding a name.",
		Card:      NewCard(t0),
		CreatedAt: t0,
		UpdatedAt: t0,
		Version:   1,
	}
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Question)
		wantOK bool
	}{
		{"valid", func(q *Question) {}, true},
		{"missing id", func(q *Question) { q.ID = "" }, false},
		{"missing prompt", func(q *Question) { q.Prompt = "" }, false},
		{"whitespace prompt", func(q *Question) { q.Prompt = "   " }, false},
		{"missing answer", func(q *Question) { q.Answer = "" }, false},
		{"invalid card", func(q *Question) { q.Card.Stability = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("Validate: expected error")
			}
		})
	}
}

func TestQuestionValidateNil(t *testing.T) {
	var q *Question
	if err := q.Validate(); err == nil {
		t.Error("Validate on nil question: expected error")
	}
}

func TestReviewRecordCorrect(t *testing.T) {
	rec := ReviewRecord{
		QuestionID: "qst:ab12cd34",
		NextDue:    t0.Add(24 * time.Hour),
		TimeSpent:  3 * time.Second,
	}

	for _, rating := range []Rating{Hard, Good, Easy} {
		rec.Rating = rating
		if !rec.Correct() {
			t.Errorf("Correct() with rating %v = false, want true", rating)
		}
	}

	rec.Rating = Again
	if rec.Correct() {
		t.Error("Correct() with rating again = true, want false")
	}
}
