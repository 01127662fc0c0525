package conversation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drill-ai/cli/internal/powerdrill"
)

// fakeAPI is a minimal Powerdrill backend for conversation tests.
type fakeAPI struct {
	mux          *http.ServeMux
	server       *httptest.Server
	sessionCount atomic.Int32

	overviewBody   string
	overviewFails  int32
	overviewCalls  atomic.Int32
	jobStatus      int
	jobStreamLines string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		mux:            http.NewServeMux(),
		overviewBody:   `{"code":0,"data":{"name":"Sales","description":"","summary":"Numbers","exploration_questions":["What changed?"],"keywords":["sales"]}}`,
		jobStatus:      http.StatusOK,
		jobStreamLines: "event: MESSAGE\ndata: {\"choices\":[{\"delta\":{\"content\":\"hello world\"}}]}\n",
	}
	f.mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		f.sessionCount.Add(1)
		w.Write([]byte(`{"code":0,"data":{"id":"session-1"}}`))
	})
	f.mux.HandleFunc("GET /datasets/{id}/overview", func(w http.ResponseWriter, r *http.Request) {
		if f.overviewCalls.Add(1) <= f.overviewFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(f.overviewBody))
	})
	f.mux.HandleFunc("POST /jobs", func(w http.ResponseWriter, r *http.Request) {
		if f.jobStatus != http.StatusOK {
			w.WriteHeader(f.jobStatus)
			return
		}
		w.Write([]byte(f.jobStreamLines))
	})
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) conversation() *Conversation {
	conv := New(powerdrill.NewClient(f.server.URL, "user-1", "test-key"))
	// Keep test retries fast; delay growth is covered by the policy tests.
	conv.retry = &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2.0}
	return conv
}

func TestSelectDatasetCreatesOneSession(t *testing.T) {
	api := newFakeAPI(t)
	conv := api.conversation()
	ctx := context.Background()

	require.NoError(t, conv.SelectDataset(ctx, "ds-1"))
	assert.Equal(t, int32(1), api.sessionCount.Load())

	// Reselecting the same dataset must not create another session.
	require.NoError(t, conv.SelectDataset(ctx, "ds-1"))
	require.NoError(t, conv.SelectDataset(ctx, "ds-1"))
	assert.Equal(t, int32(1), api.sessionCount.Load())

	// A different dataset replaces the session.
	require.NoError(t, conv.SelectDataset(ctx, "ds-2"))
	assert.Equal(t, int32(2), api.sessionCount.Load())
	assert.Equal(t, "ds-2", conv.DatasetID())
}

func TestAskRecreatesLostSession(t *testing.T) {
	api := newFakeAPI(t)
	conv := api.conversation()
	ctx := context.Background()

	require.NoError(t, conv.SelectDataset(ctx, "ds-1"))
	conv.sessionID = "" // simulate session loss

	_, err := conv.Ask(ctx, "why?", nil)
	require.NoError(t, err)
	assert.Equal(t, "session-1", conv.SessionID())
	assert.Equal(t, int32(2), api.sessionCount.Load())
}

func TestAskAppendsTranscript(t *testing.T) {
	api := newFakeAPI(t)
	conv := api.conversation()
	ctx := context.Background()
	require.NoError(t, conv.SelectDataset(ctx, "ds-1"))

	var checkpoints []string
	result, err := conv.Ask(ctx, "why?", func(s string) { checkpoints = append(checkpoints, s) })
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, []string{"hello world"}, checkpoints)

	transcript := conv.Transcript()
	require.Len(t, transcript, 2)
	assert.True(t, transcript[0].IsUser)
	assert.Equal(t, "why?", transcript[0].Content)
	assert.False(t, transcript[1].IsUser)
	assert.Equal(t, "hello world", transcript[1].Content)
}

func TestAskCapturesTransportErrorIntoTranscript(t *testing.T) {
	api := newFakeAPI(t)
	api.jobStatus = http.StatusInternalServerError
	conv := api.conversation()
	ctx := context.Background()
	require.NoError(t, conv.SelectDataset(ctx, "ds-1"))

	result, err := conv.Ask(ctx, "why?", nil)
	require.NoError(t, err, "a failed turn must not abort the conversation")

	transcript := conv.Transcript()
	require.Len(t, transcript, 2)
	assert.Contains(t, transcript[1].Content, "Error processing question")
	assert.Equal(t, transcript[1].Content, result.Text)

	// The conversation stays usable after a failed turn.
	api.jobStatus = http.StatusOK
	result, err = conv.Ask(ctx, "again?", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
}

func TestAskPropagatesAuthError(t *testing.T) {
	api := newFakeAPI(t)
	api.jobStatus = http.StatusUnauthorized
	conv := api.conversation()
	ctx := context.Background()
	require.NoError(t, conv.SelectDataset(ctx, "ds-1"))

	_, err := conv.Ask(ctx, "why?", nil)
	var authErr *powerdrill.AuthError
	require.True(t, errors.As(err, &authErr), "401 must stay an AuthError end to end")
}

func TestOverviewRetriesThenSucceeds(t *testing.T) {
	api := newFakeAPI(t)
	api.overviewFails = 2
	conv := api.conversation()
	require.NoError(t, conv.SelectDataset(context.Background(), "ds-1"))

	overview := conv.Overview(context.Background())
	assert.Equal(t, "Sales", overview.Name)
	assert.Equal(t, []string{"What changed?"}, conv.SuggestedQuestions())
	assert.Equal(t, int32(3), api.overviewCalls.Load(), "two failures then success is exactly 3 attempts")
}

func TestOverviewDegradesAfterExhaustedRetries(t *testing.T) {
	api := newFakeAPI(t)
	api.overviewFails = 100
	conv := api.conversation()
	require.NoError(t, conv.SelectDataset(context.Background(), "ds-1"))

	overview := conv.Overview(context.Background())
	assert.Equal(t, "ds-1", overview.Name, "degraded overview falls back to the dataset id")
	assert.Empty(t, overview.ExplorationQuestions)
	assert.Equal(t, int32(3), api.overviewCalls.Load())

	// Degraded result is cached; no further attempts.
	conv.Overview(context.Background())
	assert.Equal(t, int32(3), api.overviewCalls.Load())
}

func TestOverviewRetriesStructurallyInvalidResponse(t *testing.T) {
	api := newFakeAPI(t)
	api.overviewBody = `{"code":0,"data":{"description":"missing name"}}`
	conv := api.conversation()
	require.NoError(t, conv.SelectDataset(context.Background(), "ds-1"))

	overview := conv.Overview(context.Background())
	assert.Equal(t, "ds-1", overview.Name)
	assert.Equal(t, int32(3), api.overviewCalls.Load())
}

func TestAccessorsSafeWhileAskStreams(t *testing.T) {
	api := newFakeAPI(t)
	conv := api.conversation()
	ctx := context.Background()
	require.NoError(t, conv.SelectDataset(ctx, "ds-1"))
	conv.Overview(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			_, err := conv.Ask(ctx, "why?", nil)
			assert.NoError(t, err)
		}
	}()

	// Poll the accessors the way a renderer on another goroutine does; the
	// race detector flags any unsynchronized transcript or overview access.
	for {
		select {
		case <-done:
			assert.Len(t, conv.Transcript(), 50)
			return
		default:
			_ = conv.Transcript()
			_ = conv.SuggestedQuestions()
			_ = conv.DatasetID()
			_ = conv.SessionID()
		}
	}
}

func TestTranscriptReturnsStableCopy(t *testing.T) {
	api := newFakeAPI(t)
	conv := api.conversation()
	ctx := context.Background()
	require.NoError(t, conv.SelectDataset(ctx, "ds-1"))

	_, err := conv.Ask(ctx, "why?", nil)
	require.NoError(t, err)

	snapshot := conv.Transcript()
	snapshot[0].Content = "mutated"
	assert.Equal(t, "why?", conv.Transcript()[0].Content)
}

func TestAskWithoutDatasetFailsTurn(t *testing.T) {
	api := newFakeAPI(t)
	conv := api.conversation()

	result, err := conv.Ask(context.Background(), "why?", nil)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "no dataset selected")
	assert.Equal(t, int32(0), api.sessionCount.Load())
}
