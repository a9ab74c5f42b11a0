package judge

import "time"

// Remote status ids. 1 and 2 are the only non-terminal states; 3 is the only
// success; everything else is a terminal failure variant (wrong answer, TLE,
// compilation error, runtime errors, internal error).
const (
	StatusInQueue    = 1
	StatusProcessing = 2
	StatusAccepted   = 3
)

func terminal(statusID int) bool {
	return statusID != StatusInQueue && statusID != StatusProcessing
}

type Verdict string

const (
	// Remote status accepted
	VerdictPassed Verdict = "passed"
	// Any other terminal remote status
	VerdictFailed Verdict = "failed"
	// Polling budget exhausted or the service was unreachable
	VerdictErrored Verdict = "errored"
)

// One test case to execute against the submission's source code
type TestCase struct {
	Stdin          string
	ExpectedOutput string
}

type RunRequest struct {
	SourceCode       string
	LanguageID       int
	TestCases        []TestCase
	CPUTimeLimitSecs float64
	MemoryLimitKB    int
}

// Per test case outcome. Token identifies the remote submission for callers
// that need to escalate or retry a specific test case.
type TestResult struct {
	Token             string
	Verdict           Verdict
	StatusID          int
	StatusDescription string
	Stdout            string
	Stderr            string
	CompileOutput     string
	Time              string
	Memory            float64
	Message           string
}

type RunResult struct {
	Results []TestResult
	Passed  int
}

func (r *RunResult) AllPassed() bool {
	return r.Passed == len(r.Results)
}

type Config struct {
	URL                 string
	AuthToken           string
	BatchSize           int
	MaxPollAttempts     int
	PollInterval        time.Duration
	SubmissionDelay     time.Duration
	RequestTimeout      time.Duration
	Base64EncodedBodies bool
}

// wire types

type wireSubmission struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin"`
	ExpectedOutput string  `json:"expected_output"`
	CPUTimeLimit   float64 `json:"cpu_time_limit,omitempty"`
	MemoryLimit    int     `json:"memory_limit,omitempty"`
}

type wireBatchRequest struct {
	Submissions []wireSubmission `json:"submissions"`
}

type wireToken struct {
	Token string `json:"token"`
}

type wireStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type wireResult struct {
	Token         string     `json:"token"`
	Status        wireStatus `json:"status"`
	Stdout        string     `json:"stdout"`
	Stderr        string     `json:"stderr"`
	CompileOutput string     `json:"compile_output"`
	Message       string     `json:"message"`
	Time          string     `json:"time"`
	Memory        float64    `json:"memory"`
}

type wireBatchResult struct {
	Submissions []wireResult `json:"submissions"`
}
