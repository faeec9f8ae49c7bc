package runner

import (
	"time"

	"github.com/google/uuid"
)

// Step actions
const (
	ActionStart       = "start"
	ActionChoose      = "choose"
	ActionReset       = "reset"
	ActionAcknowledge = "acknowledge"
	ActionTranscript  = "transcript"
)

// TestSuite defines a complete integration test scenario.
// It is either a regular test with Steps, or a sequence that references other Cases.
type TestSuite struct {
	Name         string     `json:"name"`
	Genres       []string   `json:"genres,omitempty"`
	CustomPrompt string     `json:"custom_prompt,omitempty"`
	Language     string     `json:"language,omitempty"`
	Steps        []TestStep `json:"steps,omitempty"`
	Cases        []string   `json:"cases,omitempty"`
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one interaction with a session. Choose picks an option by
// its 1-based position in the current options unless Option is set.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Action       string       `json:"action"`
	Choice       int          `json:"choice,omitempty"`
	Option       string       `json:"option,omitempty"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a step executes
type Expectations struct {
	Status             *int     `json:"status,omitempty"`
	State              *string  `json:"state,omitempty"`
	HistoryLength      *int     `json:"history_length,omitempty"`
	OptionCount        *int     `json:"option_count,omitempty"`
	NeedsConfiguration *bool    `json:"needs_configuration,omitempty"`
	RevisionIncreased  *bool    `json:"revision_increased,omitempty"`
	Events             []string `json:"events,omitempty"`

	// Transcript analysis
	TranscriptContains    []string `json:"transcript_contains,omitempty"`
	TranscriptNotContains []string `json:"transcript_not_contains,omitempty"`
	TranscriptRegex       string   `json:"transcript_regex,omitempty"`
	TranscriptMinLength   *int     `json:"transcript_min_length,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName   string
	StepName   string
	Success    bool
	Error      error
	Duration   time.Duration
	Transcript string
	IsReset    bool // reset steps do not count toward pass/fail metrics
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job       TestJob
	Results   []TestResult
	Error     error
	Duration  time.Duration
	SessionID uuid.UUID
}
