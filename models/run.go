package models

import "time"

// RunResult holds the overall result of one pipeline invocation.
//
// It carries the run directory directly so callers can locate the artifacts
// they just produced without going through the shared latest-run pointer.
type RunResult struct {
	RunID        string
	RunDir       string
	SalleName    string
	Date         string
	HTMLFile     string
	PageFile     string
	FilmFile     string
	FilmCount    int
	PagesFetched int
	PagesFailed  int
	StartTime    time.Time
	EndTime      time.Time
}

// Duration reports the wall-clock time the run took.
func (r *RunResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
