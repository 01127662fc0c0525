// Package conversation owns the mapping between a dataset selection and the
// remote analysis session, plus the transcript of question/answer turns run
// against it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/drill-ai/cli/internal/powerdrill"
	"github.com/drill-ai/cli/internal/stream"
)

// Entry is one transcript line. The transcript is append-only; an assistant
// entry is mutated only by streaming accumulation before it is finalized.
type Entry struct {
	IsUser  bool
	Content string
}

// Conversation carries all per-session state explicitly: the selected dataset,
// the session bound to it, the transcript, and the cached overview. There is
// one in-flight job per conversation at a time; callers run turns sequentially,
// but the accessors are safe to call from another goroutine while a turn is
// streaming, which is how the UI renders mid-turn.
type Conversation struct {
	client *powerdrill.Client
	retry  *RetryPolicy

	mu         sync.Mutex
	datasetID  string
	sessionID  string
	transcript []Entry
	overview   *powerdrill.DatasetOverview
}

// New creates a conversation with no dataset selected.
func New(client *powerdrill.Client) *Conversation {
	return &Conversation{
		client: client,
		retry:  DefaultRetryPolicy(),
	}
}

// DatasetID returns the currently selected dataset id.
func (c *Conversation) DatasetID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.datasetID
}

// SessionID returns the id of the session bound to the current dataset.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Transcript returns a copy of the ordered question/answer history. The copy
// is stable even while a turn is appending.
func (c *Conversation) Transcript() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.transcript...)
}

// SelectDataset binds the conversation to a dataset. Selecting a different
// dataset replaces the session and starts a fresh transcript; reselecting the
// current dataset is a no-op.
func (c *Conversation) SelectDataset(ctx context.Context, datasetID string) error {
	c.mu.Lock()
	if datasetID == c.datasetID && c.sessionID != "" {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	sessionID, err := c.createSession(ctx, datasetID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.datasetID = datasetID
	c.sessionID = sessionID
	c.transcript = nil
	c.overview = nil
	c.mu.Unlock()
	return nil
}

func (c *Conversation) createSession(ctx context.Context, datasetID string) (string, error) {
	name := fmt.Sprintf("%s-%s", datasetID, time.Now().Format("20060102-150405"))
	return c.client.CreateSession(ctx, name, powerdrill.DefaultSessionOptions())
}

// ensureSession recreates a missing session on demand, covering session loss
// without forcing the caller to reselect the dataset. It returns the ids the
// turn should run against.
func (c *Conversation) ensureSession(ctx context.Context) (datasetID, sessionID string, err error) {
	c.mu.Lock()
	datasetID, sessionID = c.datasetID, c.sessionID
	c.mu.Unlock()

	if sessionID != "" {
		return datasetID, sessionID, nil
	}
	if datasetID == "" {
		return "", "", errors.New("no dataset selected")
	}

	sessionID, err = c.createSession(ctx, datasetID)
	if err != nil {
		return "", "", err
	}
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
	return datasetID, sessionID, nil
}

// Ask runs one full turn: append the user entry, make sure a session exists,
// stream the job, and append the assistant entry. onText, when non-nil,
// receives the accumulated answer after every delta for incremental display.
//
// Transport and decode failures inside the turn become the assistant entry's
// content instead of aborting the conversation; only a credential rejection
// propagates as an error.
func (c *Conversation) Ask(ctx context.Context, question string, onText func(string)) (*stream.Result, error) {
	c.appendEntry(Entry{IsUser: true, Content: question})

	datasetID, sessionID, err := c.ensureSession(ctx)
	if err != nil {
		return c.failTurn(err)
	}

	body, err := c.client.CreateJob(ctx, datasetID, sessionID, question)
	if err != nil {
		return c.failTurn(err)
	}
	defer body.Close()

	dec := &stream.Decoder{OnText: onText}
	result, err := dec.Decode(body)
	if err != nil {
		return c.failTurn(err)
	}

	c.appendEntry(Entry{Content: result.Text})
	return result, nil
}

func (c *Conversation) appendEntry(entry Entry) {
	c.mu.Lock()
	c.transcript = append(c.transcript, entry)
	c.mu.Unlock()
}

// failTurn records a failed turn in the transcript so the user sees the
// failure inline. Credential rejections are not recoverable and pass through
// unchanged.
func (c *Conversation) failTurn(err error) (*stream.Result, error) {
	var authErr *powerdrill.AuthError
	if errors.As(err, &authErr) {
		return nil, err
	}

	content := fmt.Sprintf("Error processing question: %v", err)
	c.appendEntry(Entry{Content: content})
	slog.Warn("turn failed", "dataset_id", c.DatasetID(), "session_id", c.SessionID(), "error", err)
	return &stream.Result{Text: content}, nil
}

// Overview fetches the dataset overview, retrying transient failures and
// structurally invalid responses per the retry policy. After exhausting
// retries it degrades to a minimal default rather than failing the turn.
func (c *Conversation) Overview(ctx context.Context) *powerdrill.DatasetOverview {
	c.mu.Lock()
	if c.overview != nil {
		overview := c.overview
		c.mu.Unlock()
		return overview
	}
	datasetID := c.datasetID
	c.mu.Unlock()

	var overview *powerdrill.DatasetOverview
	err := c.retry.Execute(ctx, func() error {
		o, err := c.client.GetDatasetOverview(ctx, datasetID)
		if err != nil {
			return err
		}
		if o.Name == "" {
			return errors.New("overview response missing name")
		}
		overview = o
		return nil
	})
	if err != nil {
		slog.Warn("dataset overview degraded", "dataset_id", datasetID, "error", err)
		overview = &powerdrill.DatasetOverview{Name: datasetID}
	}

	c.mu.Lock()
	c.overview = overview
	c.mu.Unlock()
	return overview
}

// SuggestedQuestions returns the exploration questions from the overview, if
// it has been fetched.
func (c *Conversation) SuggestedQuestions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.overview == nil {
		return nil
	}
	return c.overview.ExplorationQuestions
}
