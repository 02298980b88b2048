package status

import "time"

// Phase represents the current phase of an index generation
type Phase string

const (
	// PhaseRunning means a generation is in progress
	PhaseRunning Phase = "Running"

	// PhaseComplete means the last generation completed successfully
	PhaseComplete Phase = "Complete"

	// PhaseFailed means the last generation failed
	PhaseFailed Phase = "Failed"
)

// RunStatus represents the state of periodic index generation
type RunStatus struct {
	// Phase represents the current generation phase
	Phase Phase `json:"phase,omitempty"`

	// Message provides additional information about the status
	Message string `json:"message,omitempty"`

	// RunID identifies the last started generation
	RunID string `json:"runId,omitempty"`

	// LastAttempt is the timestamp of the last generation attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of attempts since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSuccess is the timestamp of the last successful generation
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`

	// URLCount is the number of download URLs in the last published index
	URLCount int `json:"urlCount,omitempty"`

	// RejectedCount is the number of new URLs rejected by validation during the last success
	RejectedCount int `json:"rejectedCount,omitempty"`
}

// Clone returns a copy of the status that shares no pointers with s
func (s *RunStatus) Clone() *RunStatus {
	if s == nil {
		return &RunStatus{}
	}
	out := *s
	if s.LastAttempt != nil {
		t := *s.LastAttempt
		out.LastAttempt = &t
	}
	if s.LastSuccess != nil {
		t := *s.LastSuccess
		out.LastSuccess = &t
	}
	return &out
}
