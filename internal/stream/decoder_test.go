package stream

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, input string) *Result {
	t.Helper()
	dec := &Decoder{}
	result, err := dec.Decode(strings.NewReader(input))
	require.NoError(t, err)
	return result
}

func TestDecodeSSEMessages(t *testing.T) {
	input := strings.Join([]string{
		"event: JOB_ID",
		"data: job-123",
		"event: MESSAGE",
		`data: {"choices":[{"delta":{"content":"hello "}}]}`,
		`data: {"choices":[{"delta":{"content":"world"}}]}`,
	}, "\n")

	var checkpoints []string
	dec := &Decoder{OnText: func(s string) { checkpoints = append(checkpoints, s) }}
	result, err := dec.Decode(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "job-123", result.JobID)
	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, []string{"hello ", "hello world"}, checkpoints)
}

func TestDecodeJobIDQuoted(t *testing.T) {
	result := decode(t, "event: JOB_ID\ndata: \"job-456\"\n")
	assert.Equal(t, "job-456", result.JobID)
}

func TestEquivalentTextAcrossFormats(t *testing.T) {
	tests := map[string]string{
		"sse":      "event: MESSAGE\ndata: {\"choices\":[{\"delta\":{\"content\":\"hello world\"}}]}",
		"blocks":   `{"data":{"blocks":[{"type":"MESSAGE","content":"hello world"}]}}`,
		"messages": `{"data":{"messages":[{"type":"TEXT","content":["hello world"]}]}}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "hello world", decode(t, input).Text)
		})
	}
}

func TestDecodeMessagesStringContent(t *testing.T) {
	result := decode(t, `{"data":{"messages":[{"type":"TEXT","content":"plain"}]}}`)
	assert.Equal(t, "plain", result.Text)
}

func TestMalformedLinesSkipped(t *testing.T) {
	input := strings.Join([]string{
		"not json at all",
		": keepalive",
		"id: 42",
		`{"data":{"blocks":[{"type":"MESSAGE","content":"ok"}]}}`,
		"{broken",
	}, "\n")

	result := decode(t, input)
	assert.Equal(t, "ok", result.Text)
}

func TestImageDedupIgnoresQueryString(t *testing.T) {
	input := strings.Join([]string{
		"event: IMAGE",
		`data: {"choices":[{"delta":{"content":{"url":"https://cdn/x/a.png?sig=1","name":"chart"}}}]}`,
		`data: {"choices":[{"delta":{"content":{"url":"https://cdn/x/a.png?sig=2","name":"chart"}}}]}`,
		`data: {"choices":[{"delta":{"content":{"url":"https://cdn/x/b.png?sig=3","name":"second"}}}]}`,
	}, "\n")

	result := decode(t, input)
	require.Len(t, result.Images, 2)
	assert.Equal(t, "https://cdn/x/a.png?sig=1", result.Images[0].URL)
	assert.Equal(t, "https://cdn/x/b.png?sig=3", result.Images[1].URL)

	// Only the accepted images appear inline in the text.
	assert.Equal(t, 1, strings.Count(result.Text, "![chart]"))
	assert.Equal(t, 1, strings.Count(result.Text, "![second]"))
}

func TestImageAndTableDedupSetsAreSeparate(t *testing.T) {
	input := strings.Join([]string{
		`{"data":{"blocks":[{"type":"IMAGE","content":{"url":"https://cdn/r.png","name":"r"}}]}}`,
		`{"data":{"blocks":[{"type":"TABLE","content":{"url":"https://cdn/r.png","name":"r"}}]}}`,
		`{"data":{"blocks":[{"type":"TABLE","content":{"url":"https://cdn/r.png?v=2","name":"r"}}]}}`,
	}, "\n")

	result := decode(t, input)
	assert.Len(t, result.Images, 1)
	assert.Len(t, result.Tables, 1)
}

func TestBlocksArtifactsNotInlined(t *testing.T) {
	input := strings.Join([]string{
		`{"data":{"blocks":[{"type":"MESSAGE","content":"answer"}]}}`,
		`{"data":{"blocks":[{"type":"IMAGE","content":{"url":"https://cdn/p.png","name":"plot"}}]}}`,
	}, "\n")

	result := decode(t, input)
	assert.Equal(t, "answer", result.Text)
	require.Len(t, result.Images, 1)
}

func TestBlocksSourcesAndQuestions(t *testing.T) {
	input := strings.Join([]string{
		`{"data":{"blocks":[{"type":"MESSAGE","content":"done"}]}}`,
		`{"data":{"blocks":[{"type":"SOURCES","content":["sales.csv","users.csv"]}]}}`,
		`{"data":{"blocks":[{"type":"QUESTIONS","content":["What changed in Q2?"]}]}}`,
	}, "\n")

	result := decode(t, input)
	assert.Equal(t, []string{"sales.csv", "users.csv"}, result.Sources)
	assert.Equal(t, []string{"What changed in Q2?"}, result.Questions)
	assert.Contains(t, result.Text, "**Sources**\n- sales.csv\n- users.csv")
	assert.Contains(t, result.Text, "**Related questions**\n- What changed in Q2?")
	assert.True(t, strings.HasPrefix(result.Text, "done"))
}

func TestEventCallbackOrder(t *testing.T) {
	input := strings.Join([]string{
		"event: JOB_ID",
		"data: j1",
		"event: MESSAGE",
		`data: {"choices":[{"delta":{"content":"hi"}}]}`,
		"event: TABLE",
		`data: {"choices":[{"delta":{"content":{"url":"https://cdn/t.csv","name":"t"}}}]}`,
	}, "\n")

	var types []EventType
	dec := &Decoder{OnEvent: func(ev Event) { types = append(types, ev.Type) }}
	_, err := dec.Decode(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventJobID, EventText, EventTable}, types)
}

// failingReader yields its buffer, then a read error.
type failingReader struct {
	data string
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

func TestMidStreamErrorReturnsPartialResult(t *testing.T) {
	r := &failingReader{
		data: `{"data":{"blocks":[{"type":"MESSAGE","content":"partial"}]}}` + "\n",
		err:  errors.New("connection reset"),
	}

	dec := &Decoder{}
	result, err := dec.Decode(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NotNil(t, result)
	assert.Equal(t, "partial", result.Text)
}

func TestEmptyStream(t *testing.T) {
	result := decode(t, "")
	assert.Equal(t, "", result.Text)
	assert.Empty(t, result.Images)
	assert.Empty(t, result.Tables)
}

func TestDecoderIsSinglePassOverReader(t *testing.T) {
	// The decoder must consume the reader exactly once to the end.
	r := strings.NewReader(`{"data":{"blocks":[{"type":"MESSAGE","content":"x"}]}}`)
	dec := &Decoder{}
	_, err := dec.Decode(r)
	require.NoError(t, err)
	n, _ := r.Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	_, err = r.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err)
}
