package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/choice-engine/internal/credentials"
	"github.com/jwebster45206/choice-engine/internal/handlers"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running choice-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	ProviderKey       string // sent as the per-request credential when set
	LanguageOverride  string // if set, overrides the language for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 120 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Sequences may reference other sequences
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite plays one suite in a fresh session and deletes the session afterwards.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	settings := handlers.SettingsRequest{
		Genres:       suite.Genres,
		CustomPrompt: suite.CustomPrompt,
		Language:     suite.Language,
	}
	if r.LanguageOverride != "" {
		settings.Language = r.LanguageOverride
	}

	session, err := r.createSession(ctx, settings)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.SessionID = session.ID
	defer r.deleteSession(session.ID)

	prev := session
	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult, next := r.runStep(ctx, prev, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
		} else {
			r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
		}

		if next != nil {
			prev = next
		}
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep executes one action and checks its expectations. It returns the
// session as observed after the action.
func (r *Runner) runStep(ctx context.Context, prev *handlers.SessionResponse, step TestStep) (TestResult, *handlers.SessionResponse) {
	start := time.Now()
	result := TestResult{
		StepName: step.Name,
		IsReset:  step.Action == ActionReset,
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var watcher *EventWatcher
	if len(step.Expectations.Events) > 0 {
		w, err := WatchEvents(stepCtx, r.Client, r.BaseURL, prev.ID)
		if err != nil {
			result.Error = fmt.Errorf("failed to open event stream: %w", err)
			result.Duration = time.Since(start)
			return result, nil
		}
		defer w.Close()
		watcher = w
	}

	status, transcript, err := r.perform(stepCtx, prev, step)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result, nil
	}

	session, err := r.getSession(stepCtx, prev.ID)
	if err != nil {
		result.Error = fmt.Errorf("failed to get session after step: %w", err)
		result.Duration = time.Since(start)
		return result, nil
	}
	if step.Action != ActionTranscript {
		transcript = session.Transcript
	}
	result.Transcript = transcript

	if err := validateExpectations(step.Expectations, status, prev, session, transcript); err != nil {
		result.Error = err
	} else if watcher != nil {
		if err := watcher.WaitFor(stepCtx, step.Expectations.Events); err != nil {
			result.Error = err
		}
	}

	result.Success = result.Error == nil
	result.Duration = time.Since(start)
	return result, session
}

// perform issues the step's request and returns the HTTP status. The
// transcript is returned only for transcript steps.
func (r *Runner) perform(ctx context.Context, prev *handlers.SessionResponse, step TestStep) (int, string, error) {
	base := r.BaseURL + "/v1/sessions/" + prev.ID.String()

	switch step.Action {
	case ActionStart:
		status, _, err := r.do(ctx, http.MethodPost, base+"/start", nil)
		return status, "", err
	case ActionChoose:
		option := step.Option
		if option == "" {
			if step.Choice < 1 || step.Choice > len(prev.CurrentOptions) {
				return 0, "", fmt.Errorf("choice %d out of range: %d options offered", step.Choice, len(prev.CurrentOptions))
			}
			option = prev.CurrentOptions[step.Choice-1]
		}
		status, _, err := r.do(ctx, http.MethodPost, base+"/choose", handlers.ChooseRequest{Option: option})
		return status, "", err
	case ActionReset:
		status, _, err := r.do(ctx, http.MethodPost, base+"/reset", nil)
		return status, "", err
	case ActionAcknowledge:
		status, _, err := r.do(ctx, http.MethodPost, base+"/acknowledge", nil)
		return status, "", err
	case ActionTranscript:
		status, body, err := r.do(ctx, http.MethodGet, base+"/transcript?format=text", nil)
		return status, string(body), err
	default:
		return 0, "", fmt.Errorf("unknown action %q", step.Action)
	}
}

func validateExpectations(exp Expectations, status int, prev, session *handlers.SessionResponse, transcript string) error {
	if exp.Status != nil && status != *exp.Status {
		return fmt.Errorf("expected status %d, got %d", *exp.Status, status)
	}
	if exp.Status == nil && status >= 300 {
		return fmt.Errorf("unexpected status %d", status)
	}
	if exp.State != nil && session.State.String() != *exp.State {
		return fmt.Errorf("expected state %q, got %q", *exp.State, session.State.String())
	}
	if exp.HistoryLength != nil && len(session.History) != *exp.HistoryLength {
		return fmt.Errorf("expected %d segments, got %d", *exp.HistoryLength, len(session.History))
	}
	if exp.OptionCount != nil && len(session.CurrentOptions) != *exp.OptionCount {
		return fmt.Errorf("expected %d options, got %d: %v", *exp.OptionCount, len(session.CurrentOptions), session.CurrentOptions)
	}
	if exp.NeedsConfiguration != nil && session.NeedsConfiguration != *exp.NeedsConfiguration {
		return fmt.Errorf("expected needs_configuration=%t, got %t", *exp.NeedsConfiguration, session.NeedsConfiguration)
	}
	if exp.RevisionIncreased != nil {
		increased := session.Revision > prev.Revision
		if increased != *exp.RevisionIncreased {
			return fmt.Errorf("expected revision_increased=%t (before %d, after %d)", *exp.RevisionIncreased, prev.Revision, session.Revision)
		}
	}

	for _, s := range exp.TranscriptContains {
		if !strings.Contains(transcript, s) {
			return fmt.Errorf("transcript does not contain %q", s)
		}
	}
	for _, s := range exp.TranscriptNotContains {
		if strings.Contains(transcript, s) {
			return fmt.Errorf("transcript unexpectedly contains %q", s)
		}
	}
	if exp.TranscriptRegex != "" {
		re, err := regexp.Compile(exp.TranscriptRegex)
		if err != nil {
			return fmt.Errorf("invalid transcript_regex: %w", err)
		}
		if !re.MatchString(transcript) {
			return fmt.Errorf("transcript does not match %q", exp.TranscriptRegex)
		}
	}
	if exp.TranscriptMinLength != nil && len(transcript) < *exp.TranscriptMinLength {
		return fmt.Errorf("transcript length %d below minimum %d", len(transcript), *exp.TranscriptMinLength)
	}
	return nil
}

func (r *Runner) createSession(ctx context.Context, settings handlers.SettingsRequest) (*handlers.SessionResponse, error) {
	status, body, err := r.do(ctx, http.MethodPost, r.BaseURL+"/v1/sessions", settings)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, fmt.Errorf("create session returned %d: %s", status, string(body))
	}

	var session handlers.SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode created session: %w", err)
	}
	return &session, nil
}

func (r *Runner) getSession(ctx context.Context, id uuid.UUID) (*handlers.SessionResponse, error) {
	status, body, err := r.do(ctx, http.MethodGet, r.BaseURL+"/v1/sessions/"+id.String(), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get session returned %d: %s", status, string(body))
	}

	var session handlers.SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func (r *Runner) deleteSession(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, _, err := r.do(ctx, http.MethodDelete, r.BaseURL+"/v1/sessions/"+id.String(), nil)
	if err != nil || status != http.StatusNoContent {
		r.Logger("    warning: failed to delete session %s (status %d, err %v)", id, status, err)
	}
}

// do sends a request with an optional JSON body and returns the status and body.
func (r *Runner) do(ctx context.Context, method, url string, payload interface{}) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.ProviderKey != "" {
		req.Header.Set(credentials.Header, r.ProviderKey)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}
