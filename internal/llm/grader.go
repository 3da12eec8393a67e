package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/retainhq/retain/pkg/types"
)

// ErrGradingFailure indicates the grader could not produce a usable
// evaluation. The caller keeps the answer and lets the learner retry or
// self-grade.
var ErrGradingFailure = errors.New("grading failure")

// Evaluation is the grader's verdict on one answer.
type Evaluation struct {
	// Feedback is a short encouraging note shown to the learner.
	Feedback string `json:"feedback"`

	// Rating maps the grader's 1-4 score onto the scheduler's rating scale.
	Rating types.Rating `json:"score"`
}

const gradingPromptTemplate = `You are evaluating a student's answer to a flashcard question.

Question: %s
Correct Answer: %s
Student's Answer: %s

Evaluate the student's answer and provide:
1. Brief, encouraging feedback (1-2 sentences)
2. A score from 1-4 based on accuracy:
   - 1 (Again): Completely wrong or no understanding
   - 2 (Hard): Partially correct but significant gaps
   - 3 (Good): Mostly correct with minor issues
   - 4 (Easy): Perfect or near-perfect answer

Respond in JSON format:
{
  "feedback": "Your encouraging feedback here",
  "score": 1-4
}`

// AnswerGrader grades free-form answers against the reference answer
// using a text generation model.
type AnswerGrader struct {
	generator TextGenerator
}

// NewAnswerGrader creates a grader on top of the given generator.
func NewAnswerGrader(generator TextGenerator) *AnswerGrader {
	return &AnswerGrader{generator: generator}
}

// Grade evaluates the learner's answer. A provider or parse failure is
// reported as ErrGradingFailure so callers can distinguish it from an
// invalid request.
func (g *AnswerGrader) Grade(ctx context.Context, question, correctAnswer, userAnswer string) (*Evaluation, error) {
	if strings.TrimSpace(userAnswer) == "" {
		return nil, fmt.Errorf("answer is empty")
	}

	prompt := fmt.Sprintf(gradingPromptTemplate, question, correctAnswer, userAnswer)

	raw, err := g.generator.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGradingFailure, err)
	}

	eval, err := parseEvaluation(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGradingFailure, err)
	}
	return eval, nil
}

// parseEvaluation extracts the JSON verdict from the model response.
// Models often wrap JSON in markdown fences despite instructions.
func parseEvaluation(raw string) (*Evaluation, error) {
	cleaned := stripCodeFences(raw)

	// Decode the score as a plain int first so out-of-range values can
	// be clamped instead of failing the whole review.
	var verdict struct {
		Feedback string `json:"feedback"`
		Score    int    `json:"score"`
	}
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %v", err)
	}
	if strings.TrimSpace(verdict.Feedback) == "" {
		return nil, fmt.Errorf("response has no feedback")
	}

	if verdict.Score < int(types.Again) {
		verdict.Score = int(types.Again)
	}
	if verdict.Score > int(types.Easy) {
		verdict.Score = int(types.Easy)
	}
	return &Evaluation{
		Feedback: verdict.Feedback,
		Rating:   types.Rating(verdict.Score),
	}, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[3:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
