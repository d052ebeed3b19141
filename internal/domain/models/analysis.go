package models

import "time"

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunIdle     RunStatus = "idle"
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// AnalysisStep is a progress milestone shown while a run is in flight.
type AnalysisStep struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// AnalysisSteps are reported in order for every run. They carry no logic.
var AnalysisSteps = []AnalysisStep{
	{ID: 0, Title: "Fetching historical price data"},
	{ID: 1, Title: "Analyzing trading patterns"},
	{ID: 2, Title: "Calculating technical indicators"},
	{ID: 3, Title: "Running sentiment analysis"},
	{ID: 4, Title: "Evaluating market conditions"},
	{ID: 5, Title: "Generating AI predictions"},
	{ID: 6, Title: "Compiling final report"},
}

// AnalysisRun is the state of one analysis, synchronous or scanned.
type AnalysisRun struct {
	ID             string            `json:"id"`
	Ticker         string            `json:"ticker"`
	UserID         string            `json:"user_id,omitempty"`
	Status         RunStatus         `json:"status"`
	CurrentStep    int               `json:"current_step"`
	CompletedSteps []int             `json:"completed_steps"`
	Weights        SourceWeights     `json:"weights"`
	Result         *AnalysisResult   `json:"result,omitempty"`
	Verdict        string            `json:"verdict,omitempty"`
	SourceErrors   map[Source]string `json:"source_errors,omitempty"`
	Error          string            `json:"error,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     *time.Time        `json:"finished_at,omitempty"`
}

// ProgressEvent is emitted on every state or step change of a run.
type ProgressEvent struct {
	RunID          string    `json:"run_id"`
	Ticker         string    `json:"ticker"`
	Status         RunStatus `json:"status"`
	Step           int       `json:"step"`
	Title          string    `json:"title,omitempty"`
	CompletedSteps []int     `json:"completed_steps"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// AnalysisEvent is the terminal record of a run, published to Kafka and
// stored as a history row.
type AnalysisEvent struct {
	RunID         string    `json:"run_id"`
	Ticker        string    `json:"ticker"`
	UserID        string    `json:"user_id"`
	Status        RunStatus `json:"status"`
	Overall       int       `json:"overall"`
	Verdict       string    `json:"verdict"`
	MLScore       int       `json:"ml"`
	NewsScore     int       `json:"news"`
	CongressScore int       `json:"congress"`
	SocialScore   int       `json:"social"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"ts"`
}

// NewAnalysisEvent flattens a finished run into an event.
func NewAnalysisEvent(run *AnalysisRun) *AnalysisEvent {
	ev := &AnalysisEvent{
		RunID:     run.ID,
		Ticker:    run.Ticker,
		UserID:    run.UserID,
		Status:    run.Status,
		Verdict:   run.Verdict,
		Error:     run.Error,
		Timestamp: time.Now().UTC(),
	}
	if run.FinishedAt != nil {
		ev.Timestamp = run.FinishedAt.UTC()
	}
	if run.Result != nil {
		ev.Overall = run.Result.Overall
		ev.MLScore = run.Result.Sources[SourceMLModel].Score
		ev.NewsScore = run.Result.Sources[SourceNewsOutlets].Score
		ev.CongressScore = run.Result.Sources[SourceCongress].Score
		ev.SocialScore = run.Result.Sources[SourceSocialMedia].Score
	}
	return ev
}
