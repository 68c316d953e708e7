package browser

import (
	"errors"
	"fmt"
	"time"
)

// LaunchError reports that the browser process could not be started.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string { return "launch browser: " + e.Err.Error() }
func (e *LaunchError) Unwrap() error { return e.Err }

// NavigationError reports that a navigation produced no usable response.
// Status is the HTTP status of the main document, or 0 when none arrived.
type NavigationError struct {
	URL    string
	Status int64
	Err    error
}

func (e *NavigationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("navigate %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// TimeoutError reports that a navigation or evaluation exceeded its budget.
type TimeoutError struct {
	URL     string
	Phase   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: timed out after %v", e.Phase, e.URL, e.Timeout)
}

// EvaluationError reports that an in-page script threw or returned data
// that could not be decoded.
type EvaluationError struct {
	URL    string
	Script string
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %s on %s: %v", e.Script, e.URL, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// IsLaunch reports whether err is, or wraps, a LaunchError.
func IsLaunch(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}

// IsNavigation reports whether err is, or wraps, a NavigationError.
func IsNavigation(err error) bool {
	var ne *NavigationError
	return errors.As(err, &ne)
}

// IsTimeout reports whether err is, or wraps, a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsEvaluation reports whether err is, or wraps, an EvaluationError.
func IsEvaluation(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}
