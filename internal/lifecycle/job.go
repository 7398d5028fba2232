// Package lifecycle drives one document conversion from file intake through
// submission and simulated progress to playback of the result.
package lifecycle

import (
	"errors"

	"github.com/alkime/docucast/internal/conversion"
	"github.com/alkime/docucast/internal/prefs"
	"github.com/google/uuid"
)

// ErrStaleCallback marks an async result whose job has been replaced. It is
// logged and dropped, never shown.
var ErrStaleCallback = errors.New("stale callback")

// Status is the coarse job state.
type Status int

const (
	StatusIdle Status = iota
	StatusUploading
	StatusProcessing
	StatusComplete
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusUploading:
		return "uploading"
	case StatusProcessing:
		return "processing"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a job state together with the data only that state carries.
type State interface {
	Status() Status
	isState()
}

// Idle: a document is selected but not submitted.
type Idle struct{}

// Uploading: the request is in flight and no response has arrived.
type Uploading struct{}

// Processing: the service answered and its payload is being read. Once the
// payload is decoded it is held here while progress finishes.
type Processing struct {
	pending *conversion.AudioResult
}

// Complete holds the produced audio.
type Complete struct {
	Result conversion.AudioResult
}

// Failed holds the reason the conversion did not complete.
type Failed struct {
	Err error
}

func (Idle) Status() Status       { return StatusIdle }
func (Uploading) Status() Status  { return StatusUploading }
func (Processing) Status() Status { return StatusProcessing }
func (Complete) Status() Status   { return StatusComplete }
func (Failed) Status() Status     { return StatusError }

func (Idle) isState()       {}
func (Uploading) isState()  {}
func (Processing) isState() {}
func (Complete) isState()   {}
func (Failed) isState()     {}

// Pending returns the decoded result awaiting the end of the finishing ramp.
func (p Processing) Pending() (conversion.AudioResult, bool) {
	if p.pending == nil {
		return conversion.AudioResult{}, false
	}

	return *p.pending, true
}

// Job is one conversion attempt. It is replaced wholesale on reset.
type Job struct {
	ID       uuid.UUID
	Document conversion.Document
	// Preferences is the snapshot taken at submit time.
	Preferences prefs.Preferences

	state State
}

func newJob(doc conversion.Document) *Job {
	return &Job{ID: uuid.New(), Document: doc, state: Idle{}}
}

func (j *Job) State() State { return j.state }

func (j *Job) Status() Status { return j.state.Status() }

// Result is set only when the job is complete.
func (j *Job) Result() (conversion.AudioResult, bool) {
	if c, ok := j.state.(Complete); ok {
		return c.Result, true
	}

	return conversion.AudioResult{}, false
}

// Err is set only when the job failed.
func (j *Job) Err() error {
	if f, ok := j.state.(Failed); ok {
		return f.Err
	}

	return nil
}

// InFlight reports whether a request for this job is outstanding.
func (j *Job) InFlight() bool {
	s := j.Status()
	return s == StatusUploading || s == StatusProcessing
}
