package powerdrill

// Dataset is a named collection of data sources analyzed as one unit.
type Dataset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// DataSource is one uploaded file registered against a dataset.
type DataSource struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// DatasetOverview describes a dataset after ingestion, including the
// exploration questions the service suggests asking about it.
type DatasetOverview struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Summary              string   `json:"summary"`
	ExplorationQuestions []string `json:"exploration_questions"`
	Keywords             []string `json:"keywords"`
}

// DatasetStatus summarizes the ingestion state of a dataset's data sources.
// The dataset is ready once both counts reach zero.
type DatasetStatus struct {
	InvalidCount  int `json:"invalid_count"`
	SynchingCount int `json:"synching_count"`
}

// SessionOptions control the continuity context a session binds to a dataset.
type SessionOptions struct {
	OutputLanguage          string `json:"output_language"`
	JobMode                 string `json:"job_mode"`
	MaxContextualJobHistory int    `json:"max_contextual_job_history"`
}

// DefaultSessionOptions returns the options used for sessions created on a
// dataset switch: AUTO language, AUTO job mode, up to 10 jobs of history.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		OutputLanguage:          "AUTO",
		JobMode:                 "AUTO",
		MaxContextualJobHistory: 10,
	}
}
