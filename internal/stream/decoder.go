// Package stream reconstructs typed events from the line stream a Powerdrill
// analysis job emits. The service has shipped three wire formats over time:
// SSE-style event/data framing, a legacy data.blocks shape, and an older
// data.messages shape. All three are supported permanently and tried in that
// order; this is a compatibility shim, not normal control flow.
package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// EventType discriminates the events a job stream produces.
type EventType string

const (
	EventJobID     EventType = "JOB_ID"
	EventText      EventType = "MESSAGE"
	EventImage     EventType = "IMAGE"
	EventTable     EventType = "TABLE"
	EventSources   EventType = "SOURCES"
	EventQuestions EventType = "QUESTIONS"
)

// Artifact is an image or tabular result produced by a job, referenced by URL.
type Artifact struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Event is one decoded increment from a job stream. Exactly the fields
// relevant to Type are set.
type Event struct {
	Type     EventType
	Text     string   // MESSAGE: the delta text
	Artifact Artifact // IMAGE, TABLE
	Items    []string // SOURCES, QUESTIONS
	JobID    string   // JOB_ID
}

// Result is everything a finished stream accumulated. Text is the content for
// the assistant transcript entry; Images and Tables are the unique artifacts
// in first-seen order.
type Result struct {
	JobID     string
	Text      string
	Images    []Artifact
	Tables    []Artifact
	Sources   []string
	Questions []string
}

// Decoder turns a raw line stream into events and an accumulated Result.
// A Decoder is single-use: one Decode call per job stream.
type Decoder struct {
	// OnEvent, when set, receives every accepted event in arrival order.
	OnEvent func(Event)
	// OnText, when set, receives the full accumulated text after every
	// accepted delta. This is the render checkpoint for incremental display.
	OnText func(string)

	eventType  string
	text       strings.Builder
	result     Result
	seenImages map[string]bool
	seenTables map[string]bool
}

// sseChunk is the payload of an SSE data line.
type sseChunk struct {
	Choices []struct {
		Delta struct {
			Content json.RawMessage `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// legacyLine is a standalone JSON line in either legacy format.
type legacyLine struct {
	Data struct {
		Blocks []struct {
			Type    string          `json:"type"`
			Content json.RawMessage `json:"content"`
		} `json:"blocks"`
		Messages []struct {
			Type    string          `json:"type"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	} `json:"data"`
}

// Decode consumes the stream to the end and returns the accumulated result.
// Lines that are neither SSE-framed nor valid JSON are skipped; the protocol
// emits non-JSON control lines. A read failure mid-stream returns the partial
// result together with the error so the caller can surface it in place.
func (d *Decoder) Decode(r io.Reader) (*Result, error) {
	d.seenImages = make(map[string]bool)
	d.seenTables = make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		d.decodeLine(strings.TrimRight(scanner.Text(), "\r"))
	}

	d.result.Text = d.text.String()
	if err := scanner.Err(); err != nil {
		return &d.result, fmt.Errorf("reading stream: %w", err)
	}
	return &d.result, nil
}

// decodeLine dispatches one line: SSE framing first, legacy JSON shapes after.
func (d *Decoder) decodeLine(line string) {
	if line == "" {
		return
	}

	if rest, ok := strings.CutPrefix(line, "event:"); ok {
		d.eventType = strings.TrimSpace(rest)
		return
	}
	if strings.HasPrefix(line, "id:") {
		return
	}
	if rest, ok := strings.CutPrefix(line, "data:"); ok {
		d.decodeSSEData(strings.TrimSpace(rest))
		return
	}

	var legacy legacyLine
	if err := json.Unmarshal([]byte(line), &legacy); err != nil {
		return // not JSON, skip
	}
	if len(legacy.Data.Blocks) > 0 {
		d.decodeBlocks(legacy)
		return
	}
	d.decodeMessages(legacy)
}

// decodeSSEData interprets one data payload under the most recent event type.
func (d *Decoder) decodeSSEData(payload string) {
	if d.eventType == string(EventJobID) {
		d.acceptJobID(payload)
		return
	}

	var chunk sseChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return
	}
	for _, choice := range chunk.Choices {
		content := choice.Delta.Content
		if len(content) == 0 {
			continue
		}
		switch d.eventType {
		case string(EventText):
			var text string
			if err := json.Unmarshal(content, &text); err == nil {
				d.appendText(text)
			}
		case string(EventImage):
			var art Artifact
			if err := json.Unmarshal(content, &art); err == nil && d.acceptImage(art) {
				// Interleave the image into the running text so the final
				// transcript preserves where it appeared.
				d.appendText(fmt.Sprintf("\n\n![%s](%s)\n\n", art.Name, art.URL))
			}
		case string(EventTable):
			var art Artifact
			if err := json.Unmarshal(content, &art); err == nil {
				d.acceptTable(art)
			}
		}
	}
}

// acceptJobID records the job id from an SSE JOB_ID payload, which may be a
// JSON string or the bare id itself.
func (d *Decoder) acceptJobID(payload string) {
	id := payload
	var quoted string
	if err := json.Unmarshal([]byte(payload), &quoted); err == nil {
		id = quoted
	}
	if id == "" {
		return
	}
	d.result.JobID = id
	d.emit(Event{Type: EventJobID, JobID: id})
}

// decodeBlocks handles the legacy data.blocks format. Artifacts are collected
// for rendering after the text stream ends; sources and follow-up questions
// become trailing sections of the text.
func (d *Decoder) decodeBlocks(line legacyLine) {
	for _, block := range line.Data.Blocks {
		switch block.Type {
		case "MESSAGE":
			var text string
			if err := json.Unmarshal(block.Content, &text); err == nil {
				d.appendText(text)
			}
		case "IMAGE":
			var art Artifact
			if err := json.Unmarshal(block.Content, &art); err == nil {
				d.acceptImage(art)
			}
		case "TABLE":
			var art Artifact
			if err := json.Unmarshal(block.Content, &art); err == nil {
				d.acceptTable(art)
			}
		case "SOURCES":
			if items := decodeItems(block.Content); len(items) > 0 {
				d.result.Sources = append(d.result.Sources, items...)
				d.appendSection("Sources", items)
				d.emit(Event{Type: EventSources, Items: items})
			}
		case "QUESTIONS":
			if items := decodeItems(block.Content); len(items) > 0 {
				d.result.Questions = append(d.result.Questions, items...)
				d.appendSection("Related questions", items)
				d.emit(Event{Type: EventQuestions, Items: items})
			}
		}
	}
}

// decodeMessages handles the oldest data.messages format, where TEXT content
// is either a one-element list or a plain string.
func (d *Decoder) decodeMessages(line legacyLine) {
	for _, msg := range line.Data.Messages {
		if msg.Type != "TEXT" || len(msg.Content) == 0 {
			continue
		}
		var text string
		if err := json.Unmarshal(msg.Content, &text); err == nil {
			d.appendText(text)
			continue
		}
		var list []string
		if err := json.Unmarshal(msg.Content, &list); err == nil && len(list) > 0 {
			d.appendText(list[0])
		}
	}
}

// appendText accumulates a delta and fires the render checkpoint.
func (d *Decoder) appendText(text string) {
	if text == "" {
		return
	}
	d.text.WriteString(text)
	d.emit(Event{Type: EventText, Text: text})
	if d.OnText != nil {
		d.OnText(d.text.String())
	}
}

// appendSection renders a list as a formatted trailing section of the text.
func (d *Decoder) appendSection(title string, items []string) {
	d.text.WriteString("\n\n**" + title + "**\n")
	for _, item := range items {
		d.text.WriteString("- " + item + "\n")
	}
}

// acceptImage records an image unless its URL (query string ignored) has been
// seen before. Reports whether the artifact was accepted.
func (d *Decoder) acceptImage(art Artifact) bool {
	key := stripQuery(art.URL)
	if key == "" || d.seenImages[key] {
		return false
	}
	d.seenImages[key] = true
	d.result.Images = append(d.result.Images, art)
	d.emit(Event{Type: EventImage, Artifact: art})
	return true
}

// acceptTable is the table counterpart of acceptImage with its own dedup set.
func (d *Decoder) acceptTable(art Artifact) bool {
	key := stripQuery(art.URL)
	if key == "" || d.seenTables[key] {
		return false
	}
	d.seenTables[key] = true
	d.result.Tables = append(d.result.Tables, art)
	d.emit(Event{Type: EventTable, Artifact: art})
	return true
}

func (d *Decoder) emit(ev Event) {
	if d.OnEvent != nil {
		d.OnEvent(ev)
	}
}

// decodeItems reads a SOURCES/QUESTIONS content list, tolerating a bare string.
func decodeItems(content json.RawMessage) []string {
	var items []string
	if err := json.Unmarshal(content, &items); err == nil {
		return items
	}
	var single string
	if err := json.Unmarshal(content, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

// stripQuery drops the query string so repeated deltas for the same artifact
// (signed URLs differ only in query parameters) dedup to one occurrence.
func stripQuery(url string) string {
	base, _, _ := strings.Cut(url, "?")
	return base
}
