/*
 * Filename: observe.go
 * Path: modisco
 */

package modisco

import (
	"runtime"
	"time"

	humanize "github.com/dustin/go-humanize"
)

// Observer receives a call at every stage boundary of the pipeline. Round is
// 1-based during clustering rounds and 0 for the finishing stages.
type Observer interface {
	StageDone(round int, stage string, elapsed time.Duration)
}

// LogObserver logs stage timing and memory in use
type LogObserver struct{}

// StageDone logs one line per stage
func (LogObserver) StageDone(round int, stage string, elapsed time.Duration) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if round > 0 {
		log.Noticef("(Round %d) %s completed in %s, memory in use %s",
			round, stage, elapsed.Round(time.Millisecond), humanize.Bytes(m.Sys))
		return
	}
	log.Noticef("%s completed in %s, memory in use %s",
		stage, elapsed.Round(time.Millisecond), humanize.Bytes(m.Sys))
}

// stageTimer reports to an observer
type stageTimer struct {
	obs   Observer
	round int
	start time.Time
}

func newStageTimer(obs Observer, round int) *stageTimer {
	return &stageTimer{obs: obs, round: round, start: time.Now()}
}

// done reports the stage and restarts the clock
func (r *stageTimer) done(stage string) {
	if r.obs != nil {
		r.obs.StageDone(r.round, stage, time.Since(r.start))
	}
	r.start = time.Now()
}
