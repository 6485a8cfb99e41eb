// Package capture models a client recording session and validates captured
// samples before they are sent to cloning or replica training. Samples that
// are too short or too small produce unusable clones, so they are rejected
// up front.
package capture

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State of a capture session.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
)

// Kind of media being captured.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Minimum sample requirements per kind.
const (
	MinAudioDuration = 30 * time.Second
	MinAudioBytes    = 100_000

	MinVideoDuration = 10 * time.Second
	MinVideoBytes    = 500_000
)

var ErrInvalidTransition = errors.New("capture: invalid state transition")

// Session tracks one recording through its lifecycle. Not safe for
// concurrent use; each client connection owns its session.
type Session struct {
	kind    Kind
	state   State
	elapsed time.Duration
	started time.Time
	now     func() time.Time
}

func NewSession(kind Kind) *Session {
	return &Session{kind: kind, state: StateIdle, now: time.Now}
}

func (s *Session) Kind() Kind   { return s.kind }
func (s *Session) State() State { return s.state }

// Duration reports recorded time so far, including the active segment.
func (s *Session) Duration() time.Duration {
	if s.state == StateRecording {
		return s.elapsed + s.now().Sub(s.started)
	}
	return s.elapsed
}

func (s *Session) Start() error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, s.state)
	}
	s.state = StateRecording
	s.started = s.now()
	return nil
}

func (s *Session) Pause() error {
	if s.state != StateRecording {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, s.state)
	}
	s.elapsed += s.now().Sub(s.started)
	s.state = StatePaused
	return nil
}

func (s *Session) Resume() error {
	if s.state != StatePaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, s.state)
	}
	s.state = StateRecording
	s.started = s.now()
	return nil
}

func (s *Session) Stop() error {
	switch s.state {
	case StateRecording:
		s.elapsed += s.now().Sub(s.started)
	case StatePaused:
	default:
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, s.state)
	}
	s.state = StateStopped
	return nil
}

// ValidationError reports every way a sample fell short, paired with what
// the user can do about it.
type ValidationError struct {
	Issues          []string
	Recommendations []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Issues, "; ") }

// ValidateSample checks a captured sample against the per-kind minimums and
// reports all violations at once. Duration may be zero when the client did
// not report it; the size floor still applies.
func ValidateSample(kind Kind, size int, duration time.Duration) error {
	var verr ValidationError

	if kind == KindVideo {
		if duration > 0 && duration < MinVideoDuration {
			verr.Issues = append(verr.Issues, "Video too short")
			verr.Recommendations = append(verr.Recommendations, "Record at least 10 seconds for better avatar quality.")
		}
		if size < MinVideoBytes {
			verr.Issues = append(verr.Issues, "Video quality may be too low")
			verr.Recommendations = append(verr.Recommendations, "Ensure good lighting and camera quality.")
		}
	} else {
		if duration > 0 && duration < MinAudioDuration {
			verr.Issues = append(verr.Issues, "Audio too short")
			verr.Recommendations = append(verr.Recommendations, "Record at least 30 seconds for better voice quality.")
		}
		if size < MinAudioBytes {
			verr.Issues = append(verr.Issues, "Audio quality may be too low")
			verr.Recommendations = append(verr.Recommendations, "Ensure good microphone quality and speak clearly.")
		}
	}

	if len(verr.Issues) > 0 {
		return &verr
	}
	return nil
}
