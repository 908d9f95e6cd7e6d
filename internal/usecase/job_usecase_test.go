package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/places-extractor/internal/entity"
)

func TestJobManager_SubmitAndReport(t *testing.T) {
	h := newHarness()
	jm := h.manager()

	job, err := jm.Submit(context.Background(), entity.ExtractionRequest{Query: " coffee ", TargetCount: 3})
	require.NoError(t, err)
	assert.Equal(t, entity.JobPending, job.Status)
	assert.Equal(t, "coffee", job.Request.Query)
	assert.Equal(t, []string{job.ID}, h.queue.items)

	report, err := jm.Report(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobPending, report.Job.Status)
	assert.Empty(t, report.Records)
}

func TestJobManager_Errors(t *testing.T) {
	h := newHarness()
	jm := h.manager()

	_, err := jm.Report(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = jm.Submit(context.Background(), entity.ExtractionRequest{Query: "coffee"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, h.jobs.jobs)

	h.queue.pushErr = errBoom
	_, err = jm.Submit(context.Background(), coffee)
	assert.ErrorIs(t, err, errBoom)
	require.Len(t, h.jobs.jobs, 1)
	for _, job := range h.jobs.jobs {
		assert.Equal(t, entity.JobFailed, job.Status)
	}
}

func TestJobProcessor_EmptyQueue(t *testing.T) {
	found, err := newHarness().processor().ProcessNext(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestJobProcessor_CompletesJob(t *testing.T) {
	h := newHarness()
	job, err := h.manager().Submit(context.Background(), coffee)
	require.NoError(t, err)

	found, err := h.processor().ProcessNext(context.Background())
	require.NoError(t, err)
	assert.True(t, found)

	report, err := h.manager().Report(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobCompleted, report.Job.Status)
	require.NotNil(t, report.Job.Stats)
	assert.Equal(t, 2, report.Job.Stats.Succeeded)
	assert.Len(t, report.Records, 2)
	assert.Len(t, report.Failures, 1)
}

func TestJobProcessor_FailsJob(t *testing.T) {
	h := newHarness()
	h.extractor.err = errBoom
	job, err := h.manager().Submit(context.Background(), coffee)
	require.NoError(t, err)

	found, err := h.processor().ProcessNext(context.Background())
	require.NoError(t, err)
	assert.True(t, found)

	got, err := h.jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobFailed, got.Status)
	assert.Contains(t, got.FailureReason, "boom")
}

func TestJobProcessor_UnknownJob(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.queue.Push(context.Background(), "ghost"))

	found, err := h.processor().ProcessNext(context.Background())
	assert.True(t, found)
	assert.Error(t, err)
}

func TestJobProcessor_RunDrainsQueueUntilCancelled(t *testing.T) {
	h := newHarness()
	jm := h.manager()
	var ids []string
	for _, q := range []string{"coffee", "tea", "juice"} {
		job, err := jm.Submit(context.Background(), entity.ExtractionRequest{Query: q, TargetCount: 2})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.processor().Run(ctx, 2, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		for _, id := range ids {
			job, err := h.jobs.Get(context.Background(), id)
			if err != nil || job.Status != entity.JobCompleted {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop after cancellation")
	}
}
