package domain

import "fmt"

type JobState string

const (
	JobSubmitted JobState = "submitted"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobTimedOut  JobState = "timed_out"
)

func (s JobState) Terminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobTimedOut:
		return true
	default:
		return false
	}
}

// PollStatus is what the analysis service reports for one poll.
type PollStatus string

const (
	PollRunning   PollStatus = "running"
	PollSucceeded PollStatus = "succeeded"
	PollFailed    PollStatus = "failed"
)

// Label is one detected label returned by the analysis service.
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// AnalysisJob tracks one label-detection job. The poll ceiling lives on the
// job so the timeout policy is a property of the state, not of a loop.
type AnalysisJob struct {
	JobID    string   `json:"job_id"`
	State    JobState `json:"state"`
	Polls    int      `json:"polls"`
	MaxPolls int      `json:"max_polls"`
	Labels   []string `json:"labels,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

func NewAnalysisJob(maxPolls int) *AnalysisJob {
	return &AnalysisJob{State: JobSubmitted, MaxPolls: maxPolls}
}

// Exhausted reports whether the poll ceiling has been reached.
func (j *AnalysisJob) Exhausted() bool {
	return j.MaxPolls > 0 && j.Polls >= j.MaxPolls
}

// Transition moves the job forward. Terminal states never change and a job
// can only start running after submission.
func (j *AnalysisJob) Transition(to JobState) error {
	if j.State == to && to == JobRunning {
		return nil
	}
	if j.State.Terminal() {
		return fmt.Errorf("analysis job %q: illegal transition %s -> %s", j.JobID, j.State, to)
	}
	switch j.State {
	case JobSubmitted:
		if to != JobRunning && to != JobFailed {
			return fmt.Errorf("analysis job %q: illegal transition %s -> %s", j.JobID, j.State, to)
		}
	case JobRunning:
		if to == JobSubmitted {
			return fmt.Errorf("analysis job %q: illegal transition %s -> %s", j.JobID, j.State, to)
		}
	}
	j.State = to
	return nil
}

// AnalysisPoll is one observation of a submitted job.
type AnalysisPoll struct {
	Status PollStatus
	Labels []Label
	Detail string
}
