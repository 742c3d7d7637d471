// Package models holds the data types shared across the judge pipeline,
// the submission store, the ranking engine, and the HTTP layer.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Verdict is one of the result strings a CaseResult or Job can carry. The
// corpus convention for this kind of enum is a short code implementing
// sql.Scanner/driver.Valuer (see the teacher's own Verdict type); these
// values are the full strings the wire format requires, but the
// Scan/Value plumbing is kept so the Store can round-trip them through a
// text column the same way.
type Verdict string

const (
	Waiting             Verdict = "Waiting"
	Accepted            Verdict = "Accepted"
	WrongAnswer         Verdict = "Wrong Answer"
	TimeLimitExceeded   Verdict = "Time Limit Exceeded"
	MemoryLimitExceeded Verdict = "Memory Limit Exceeded"
	RuntimeError        Verdict = "Runtime Error"
	CompilationError    Verdict = "Compilation Error"
	CompilationSuccess  Verdict = "Compilation Success"
	SystemError         Verdict = "System Error"
	SPJError            Verdict = "SPJ Error"
)

func (v Verdict) Value() (driver.Value, error) {
	return string(v), nil
}

func (v *Verdict) Scan(value interface{}) error {
	if value == nil {
		*v = Waiting
		return nil
	}
	switch s := value.(type) {
	case string:
		*v = Verdict(s)
	case []byte:
		*v = Verdict(s)
	default:
		return fmt.Errorf("models: cannot scan %T into Verdict", value)
	}
	return nil
}

// ProblemType selects the comparator and scoring rule for a Problem.
type ProblemType string

const (
	TypeStandard       ProblemType = "standard"
	TypeStrict         ProblemType = "strict"
	TypeSPJ            ProblemType = "spj"
	TypeDynamicRanking ProblemType = "dynamic_ranking"
)

// Case is one (input, expected-output, limits) tuple inside a Problem.
type Case struct {
	Score       float64 `json:"score"`
	InputFile   string  `json:"input_file"`
	AnswerFile  string  `json:"answer_file"`
	TimeLimit   int64   `json:"time_limit"`   // microseconds
	MemoryLimit int64   `json:"memory_limit"` // bytes; 0 = unbounded

	// AssetSource is a supplemental, optional object-storage key. When set
	// and the input/answer files are not already present on disk, the
	// Workspace resolves them from the configured asset store before the
	// case runs. Cases that only use local files leave this empty.
	AssetSource string `json:"asset_source,omitempty"`
}

// ProblemMisc carries the optional per-problem extras referenced by spec.md §3.
type ProblemMisc struct {
	SpecialJudge        []string `json:"special_judge,omitempty"`
	DynamicRankingRatio float64  `json:"dynamic_ranking_ratio,omitempty"`
}

// Problem is immutable configuration loaded from the judge config document.
type Problem struct {
	ID    uint64       `json:"id"`
	Name  string       `json:"name"`
	Type  ProblemType  `json:"type"`
	Misc  *ProblemMisc `json:"misc,omitempty"`
	Cases []Case       `json:"cases"`
}

// Language is immutable configuration describing a compiler toolchain.
type Language struct {
	Name     string   `json:"name"`
	FileName string   `json:"file_name"`
	Command  []string `json:"command"`
}

// User is a judge account. User 0 is the built-in root user.
type User struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Contest groups a roster of users and problems under a time window and a
// per-user submission limit. Contest 0 is the sentinel "global contest".
type Contest struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	ProblemIDs      []uint64  `json:"problem_ids"`
	UserIDs         []uint64  `json:"user_ids"`
	SubmissionLimit int64     `json:"submission_limit"`
}

// Submission is the input payload of POST /jobs.
type Submission struct {
	SourceCode string `json:"source_code"`
	Language   string `json:"language"`
	UserID     uint64 `json:"user_id"`
	ContestID  uint64 `json:"contest_id"`
	ProblemID  uint64 `json:"problem_id"`
}

// CaseResult is one entry of Job.Cases. Index 0 describes compilation;
// indices 1..N correspond to the problem's cases in declared order.
type CaseResult struct {
	ID     int     `json:"id"`
	Result Verdict `json:"result"`
	Time   int64   `json:"time"`   // microseconds
	Memory int64   `json:"memory"` // bytes
	Info   string  `json:"info,omitempty"`
}

// JobState is the externally visible lifecycle state of a Job.
type JobState string

const (
	StateQueueing JobState = "Queueing"
	StateRunning  JobState = "Running"
	StateFinished JobState = "Finished"
	StateCanceled JobState = "Canceled"
)

// Job is a judged submission: its inputs, its lifecycle state, and its
// per-case results.
type Job struct {
	ID          uint64       `json:"id"`
	CreatedTime time.Time    `json:"created_time"`
	UpdatedTime time.Time    `json:"updated_time"`
	Submission  Submission   `json:"submission"`
	State       JobState     `json:"state"`
	Result      Verdict      `json:"result"`
	Score       float64      `json:"score"`
	Cases       []CaseResult `json:"cases"`
}

// Rank is one row of a contest ranklist response.
type Rank struct {
	User   User      `json:"user"`
	Rank   int       `json:"rank"`
	Scores []float64 `json:"scores"`
}

const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in the wire format spec.md §6 mandates: UTC,
// millisecond precision, trailing Z.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an RFC3339-with-milliseconds timestamp as used by
// GET /jobs's from/to filters.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
