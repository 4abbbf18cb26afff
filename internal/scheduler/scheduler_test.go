package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRunner struct {
	calls int
	err   error
	ctx   context.Context
}

func (r *countingRunner) Run(ctx context.Context) error {
	r.calls++
	r.ctx = ctx
	return r.err
}

func TestRunOnceAppliesTimeout(t *testing.T) {
	r := &countingRunner{}
	s := New("0 6 * * *", time.Minute, r)

	s.runOnce()
	assert.Equal(t, 1, r.calls)
	_, hasDeadline := r.ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestRunOnceSurvivesFailure(t *testing.T) {
	r := &countingRunner{err: errors.New("boom")}
	s := New("0 6 * * *", 0, r)

	assert.NotPanics(t, s.runOnce)
	assert.Equal(t, 10*time.Minute, s.timeout)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := New("not a cron", time.Minute, &countingRunner{})
	defer s.Stop()

	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s := New("0 6 * * *", time.Minute, &countingRunner{})
	assert.NoError(t, s.Start())
	s.Stop()
}
