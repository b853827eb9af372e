package interview

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"placementprep/internal/config"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	questions   []string
	questionErr error
	eval        types.AnswerEvaluation
	evalErr     error
	evaluated   [][2]string
	asked       int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Question(context.Context) (types.InterviewQuestion, error) {
	if f.questionErr != nil {
		return types.InterviewQuestion{}, f.questionErr
	}
	q := f.questions[f.asked%len(f.questions)]
	f.asked++
	return types.InterviewQuestion{Question: q}, nil
}

func (f *fakeProvider) Evaluate(_ context.Context, question, answer string) (types.AnswerEvaluation, error) {
	f.evaluated = append(f.evaluated, [2]string{question, answer})
	return f.eval, f.evalErr
}

func TestRoundStages(t *testing.T) {
	fake := &fakeProvider{
		questions: []string{"What is a mutex?", "Explain TCP handshake."},
		eval:      types.AnswerEvaluation{Score: 80, Feedback: "Good"},
	}
	round := NewRound(fake)
	ctx := context.Background()

	assert.Equal(t, StageNoQuestion, round.Snapshot().Stage)

	_, err := round.Answer(ctx, "anything")
	assert.ErrorIs(t, err, ErrNoQuestion)

	q, err := round.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "What is a mutex?", q)
	assert.Equal(t, StageQuestionShown, round.Snapshot().Stage)

	_, err = round.Answer(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyAnswer)
	assert.Empty(t, fake.evaluated)

	eval, err := round.Answer(ctx, "A lock")
	require.NoError(t, err)
	assert.Equal(t, types.Percentage(80), eval.Score)

	view := round.Snapshot()
	assert.Equal(t, StageAnswered, view.Stage)
	assert.Equal(t, "A lock", view.Answer)
	require.NotNil(t, view.Score)
	assert.Equal(t, types.Percentage(80), *view.Score)
	assert.Equal(t, [][2]string{{"What is a mutex?", "A lock"}}, fake.evaluated)

	_, err = round.Answer(ctx, "again")
	assert.ErrorIs(t, err, ErrAnswered)

	// Starting again clears answer and score
	q, err = round.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Explain TCP handshake.", q)
	view = round.Snapshot()
	assert.Equal(t, StageQuestionShown, view.Stage)
	assert.Empty(t, view.Answer)
	assert.Nil(t, view.Score)
}

func TestRoundFailuresLeaveStageUnchanged(t *testing.T) {
	fake := &fakeProvider{questions: []string{"Q1"}}
	round := NewRound(fake)
	ctx := context.Background()

	_, err := round.Start(ctx)
	require.NoError(t, err)

	fake.evalErr = errors.New("grader down")
	_, err = round.Answer(ctx, "my answer")
	require.Error(t, err)
	view := round.Snapshot()
	assert.Equal(t, StageQuestionShown, view.Stage)
	assert.Empty(t, view.Answer)

	fake.questionErr = errors.New("no questions")
	_, err = round.Start(ctx)
	require.Error(t, err)
	view = round.Snapshot()
	assert.Equal(t, StageQuestionShown, view.Stage)
	assert.Equal(t, "Q1", view.Question)
}

type blockingEvaluator struct {
	fakeProvider
	release chan struct{}
	entered chan struct{}
}

func (b *blockingEvaluator) Evaluate(ctx context.Context, question, answer string) (types.AnswerEvaluation, error) {
	close(b.entered)
	<-b.release
	return types.AnswerEvaluation{Score: 10}, nil
}

func TestRoundDiscardsStaleEvaluation(t *testing.T) {
	provider := &blockingEvaluator{
		fakeProvider: fakeProvider{questions: []string{"Q1", "Q2"}},
		release:      make(chan struct{}),
		entered:      make(chan struct{}),
	}
	round := NewRound(provider)
	ctx := context.Background()

	_, err := round.Start(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := round.Answer(ctx, "late answer")
		done <- err
	}()

	<-provider.entered
	_, err = round.Start(ctx)
	require.NoError(t, err)
	close(provider.release)

	assert.ErrorIs(t, <-done, ErrStaleResponse)
	view := round.Snapshot()
	assert.Equal(t, StageQuestionShown, view.Stage)
	assert.Equal(t, "Q2", view.Question)
	assert.Nil(t, view.Score)
}

func remoteConfig(baseURL string) config.InterviewConfig {
	return config.InterviewConfig{Mode: ModeRemote, BaseURL: baseURL, Timeout: time.Second}
}

func TestRemoteProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/question":
			_, _ = w.Write([]byte(`{"question": "What is polymorphism?"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/evaluate":
			var body map[string]string
			if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
				return
			}
			assert.Equal(t, "What is polymorphism?", body["question"])
			assert.Equal(t, "Many forms", body["answer"])
			_, _ = w.Write([]byte(`{"score": "72"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	provider, err := NewProvider(&config.Config{Interview: remoteConfig(server.URL + "/")}, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeRemote, provider.Name())

	round := NewRound(provider)
	q, err := round.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "What is polymorphism?", q)

	eval, err := round.Answer(context.Background(), "Many forms")
	require.NoError(t, err)
	assert.Equal(t, types.Percentage(72), eval.Score)
}

func TestRemoteProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error": "boom"}`},
		{name: "score out of range", status: http.StatusOK, body: `{"score": 250}`},
		{name: "score not numeric", status: http.StatusOK, body: `{"score": "great"}`},
		{name: "score missing", status: http.StatusOK, body: `{"feedback": "ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider, err := NewRemoteProvider(remoteConfig(server.URL), nil)
			require.NoError(t, err)

			_, err = provider.Evaluate(context.Background(), "q", "a")
			require.Error(t, err)
			var appErr *appErrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, appErrors.ErrCodeRemoteFailed, appErr.Code)
		})
	}
}

func TestRemoteProviderRejectsEmptyQuestion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"question": ""}`))
	}))
	defer server.Close()

	provider, err := NewRemoteProvider(remoteConfig(server.URL), nil)
	require.NoError(t, err)

	_, err = provider.Question(context.Background())
	assert.ErrorContains(t, err, "empty question")
}

func TestNewProviderValidation(t *testing.T) {
	_, err := NewProvider(&config.Config{Interview: config.InterviewConfig{Mode: "chat"}}, nil)
	assert.ErrorContains(t, err, "unsupported interview mode")

	_, err = NewRemoteProvider(config.InterviewConfig{BaseURL: "localhost:5001"}, nil)
	assert.ErrorContains(t, err, "invalid interview base URL")
}
