package interview

import (
	"context"
	"errors"
	"strings"
	"sync"

	"placementprep/internal/types"
)

// Stage is the position of a round in no_question -> question_shown -> answered
type Stage string

const (
	StageNoQuestion    Stage = "no_question"
	StageQuestionShown Stage = "question_shown"
	StageAnswered      Stage = "answered"
)

var (
	ErrNoQuestion  = errors.New("no question has been asked")
	ErrEmptyAnswer = errors.New("answer is empty")
	ErrAnswered    = errors.New("question has already been answered")
	// ErrStaleResponse is returned when a new question was started while a call was in flight
	ErrStaleResponse = errors.New("response belongs to a previous question")
)

// RoundView is a copy of a round's state
type RoundView struct {
	Stage    Stage             `json:"stage"`
	Question string            `json:"question,omitempty"`
	Answer   string            `json:"answer,omitempty"`
	Score    *types.Percentage `json:"score,omitempty"`
	Feedback string            `json:"feedback,omitempty"`
}

// Round holds one question and its graded answer. There is no history.
type Round struct {
	provider Provider

	mu         sync.Mutex
	generation uint64
	stage      Stage
	question   string
	answer     string
	evaluation *types.AnswerEvaluation
}

// NewRound creates an empty round
func NewRound(provider Provider) *Round {
	return &Round{provider: provider, stage: StageNoQuestion}
}

// Start fetches a new question from any stage, clearing the previous answer and score.
// On failure the round is left as it was.
func (r *Round) Start(ctx context.Context) (string, error) {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	q, err := r.provider.Question(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return "", ErrStaleResponse
	}
	if err != nil {
		return "", err
	}

	r.stage = StageQuestionShown
	r.question = strings.TrimSpace(q.Question)
	r.answer = ""
	r.evaluation = nil
	return r.question, nil
}

// Answer grades answer against the shown question and moves the round to answered
func (r *Round) Answer(ctx context.Context, answer string) (types.AnswerEvaluation, error) {
	r.mu.Lock()
	switch {
	case r.stage == StageNoQuestion:
		r.mu.Unlock()
		return types.AnswerEvaluation{}, ErrNoQuestion
	case r.stage == StageAnswered:
		r.mu.Unlock()
		return types.AnswerEvaluation{}, ErrAnswered
	case strings.TrimSpace(answer) == "":
		r.mu.Unlock()
		return types.AnswerEvaluation{}, ErrEmptyAnswer
	}
	gen := r.generation
	question := r.question
	r.mu.Unlock()

	eval, err := r.provider.Evaluate(ctx, question, answer)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return types.AnswerEvaluation{}, ErrStaleResponse
	}
	if err != nil {
		return types.AnswerEvaluation{}, err
	}

	r.stage = StageAnswered
	r.answer = answer
	r.evaluation = &eval
	return eval, nil
}

// Snapshot returns the current state
func (r *Round) Snapshot() RoundView {
	r.mu.Lock()
	defer r.mu.Unlock()

	view := RoundView{Stage: r.stage, Question: r.question, Answer: r.answer}
	if r.evaluation != nil {
		score := r.evaluation.Score
		view.Score = &score
		view.Feedback = r.evaluation.Feedback
	}
	return view
}
