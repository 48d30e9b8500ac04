package systems

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func nextJobName(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case name := <-ch:
		return name
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a job to run")
		return ""
	}
}

func TestNewJobSystemValidation(t *testing.T) {
	js, err := NewJobSystem(0, 4)
	assert.ErrorIs(t, err, ErrNoWorkers)
	assert.Nil(t, js)

	js, err = NewJobSystem(2, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
	assert.Nil(t, js)
}

func TestJobSystemRunsSubmittedJob(t *testing.T) {
	js, err := NewJobSystem(2, 8)
	require.NoError(t, err)
	t.Cleanup(func() { js.Shutdown() })

	completed := make(chan interface{}, 1)
	finished := make(chan struct{})
	js.Submit(metadata.JobTask{
		JobType:     metadata.JOB_TYPE_GENERAL,
		Priority:    metadata.JOB_PRIORITY_NORMAL,
		InputParams: 21,
		OnStart: func(params interface{}, results chan interface{}) error {
			results <- params.(int) * 2
			return nil
		},
		OnComplete: func(results chan interface{}) {
			completed <- <-results
		},
		OnCompletionCallback: func() { close(finished) },
	})

	select {
	case v := <-completed:
		assert.Equal(t, 42, v)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not complete in time")
	}
	waitSignal(t, finished, "completion callback")
}

func TestJobSystemFailureCallback(t *testing.T) {
	js, err := NewJobSystem(1, 8)
	require.NoError(t, err)
	t.Cleanup(func() { js.Shutdown() })

	var completeRan atomic.Bool
	failed := make(chan struct{})
	finished := make(chan struct{})
	js.Submit(metadata.JobTask{
		OnStart: func(params interface{}, results chan interface{}) error {
			return fmt.Errorf("disk on fire")
		},
		OnComplete: func(results chan interface{}) {
			completeRan.Store(true)
		},
		OnFailure: func(results chan interface{}) {
			close(failed)
		},
		OnCompletionCallback: func() { close(finished) },
	})

	waitSignal(t, failed, "failure callback")
	waitSignal(t, finished, "completion callback")
	assert.False(t, completeRan.Load())
}

func TestJobSystemPriorityOrder(t *testing.T) {
	js, err := NewJobSystem(1, 8)
	require.NoError(t, err)
	t.Cleanup(func() { js.Shutdown() })

	started := make(chan struct{})
	gate := make(chan struct{})
	order := make(chan string, 3)

	// Occupy the single worker so the remaining jobs queue up behind it.
	js.Submit(metadata.JobTask{
		OnStart: func(params interface{}, results chan interface{}) error {
			close(started)
			<-gate
			return nil
		},
	})
	waitSignal(t, started, "blocker start")

	record := func(name string) metadata.JobTask {
		priority := metadata.JOB_PRIORITY_NORMAL
		switch name {
		case "low":
			priority = metadata.JOB_PRIORITY_LOW
		case "high":
			priority = metadata.JOB_PRIORITY_HIGH
		}
		return metadata.JobTask{
			Priority: priority,
			OnStart: func(params interface{}, results chan interface{}) error {
				order <- name
				return nil
			},
		}
	}

	js.Submit(record("low"))
	js.Submit(record("normal"))
	js.Submit(record("high"))
	close(gate)

	assert.Equal(t, "high", nextJobName(t, order))
	assert.Equal(t, "normal", nextJobName(t, order))
	assert.Equal(t, "low", nextJobName(t, order))
}

func TestJobSystemResourceLoadsSerialized(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	require.NoError(t, err)
	t.Cleanup(func() { js.Shutdown() })

	var inFlight atomic.Int32
	var overlapped atomic.Bool
	order := make(chan string, 5)

	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("load-%d", i)
		js.Submit(metadata.JobTask{
			JobType: metadata.JOB_TYPE_RESOURCE_LOAD,
			OnStart: func(params interface{}, results chan interface{}) error {
				if inFlight.Add(1) > 1 {
					overlapped.Store(true)
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				order <- name
				return nil
			},
		})
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("load-%d", i), nextJobName(t, order))
	}
	assert.False(t, overlapped.Load(), "resource loads ran concurrently")
}

func TestJobSystemShutdownWaitsForInFlight(t *testing.T) {
	js, err := NewJobSystem(1, 8)
	require.NoError(t, err)

	started := make(chan struct{})
	finished := make(chan struct{}, 1)
	js.Submit(metadata.JobTask{
		OnStart: func(params interface{}, results chan interface{}) error {
			close(started)
			time.Sleep(20 * time.Millisecond)
			finished <- struct{}{}
			return nil
		},
	})

	waitSignal(t, started, "job start")
	require.NoError(t, js.Shutdown())

	select {
	case <-finished:
	default:
		t.Fatal("shutdown returned before the in-flight job finished")
	}
}

func TestJobSystemSubmitNonBlocking(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	t.Cleanup(func() { js.Shutdown() })

	done := make(chan struct{})
	js.SubmitNonBlocking(metadata.JobTask{
		OnStart: func(params interface{}, results chan interface{}) error {
			close(done)
			return nil
		},
	})

	waitSignal(t, done, "non-blocking job")
}
