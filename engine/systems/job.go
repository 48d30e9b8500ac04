package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

/**
 * @brief The job system runs submitted tasks on a pool of workers. General
 * jobs fan out across the pool; resource-load jobs run on a single dedicated
 * worker so disk access stays serialized. Within a queue, workers pick
 * waiting high-priority jobs before normal ones, and normal before low.
 */
type JobSystem struct {
	numWorkers int
	general    jobQueues
	resource   jobQueues
	done       chan struct{}
	wg         sync.WaitGroup
}

// jobQueues holds one channel per priority.
type jobQueues struct {
	high   chan metadata.JobTask
	normal chan metadata.JobTask
	low    chan metadata.JobTask
}

func newJobQueues(channelSize int) jobQueues {
	return jobQueues{
		high:   make(chan metadata.JobTask, channelSize),
		normal: make(chan metadata.JobTask, channelSize),
		low:    make(chan metadata.JobTask, channelSize),
	}
}

func (q jobQueues) byPriority(priority metadata.JobPriority) chan metadata.JobTask {
	switch priority {
	case metadata.JOB_PRIORITY_HIGH:
		return q.high
	case metadata.JOB_PRIORITY_LOW:
		return q.low
	}
	return q.normal
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		general:    newJobQueues(channelSize),
		resource:   newJobQueues(channelSize),
		done:       make(chan struct{}),
	}
	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go js.worker(js.general)
	}
	// Resource loads stay on one worker to avoid disk thrashing.
	js.wg.Add(1)
	go js.worker(js.resource)
}

// worker runs queued jobs until shutdown. The two probing selects give
// strict preference to jobs already waiting at a higher priority.
func (js *JobSystem) worker(queues jobQueues) {
	defer js.wg.Done()
	for {
		select {
		case job := <-queues.high:
			js.run(job)
			continue
		default:
		}
		select {
		case job := <-queues.high:
			js.run(job)
			continue
		case job := <-queues.normal:
			js.run(job)
			continue
		default:
		}
		select {
		case <-js.done:
			return
		case job := <-queues.high:
			js.run(job)
		case job := <-queues.normal:
			js.run(job)
		case job := <-queues.low:
			js.run(job)
		}
	}
}

func (js *JobSystem) run(job metadata.JobTask) {
	if job.OnStart == nil {
		core.LogWarn("job submitted without an OnStart, dropping it")
		return
	}
	results := make(chan interface{}, 1)
	if err := job.OnStart(job.InputParams, results); err != nil {
		core.LogError(err.Error())
		if job.OnFailure != nil {
			job.OnFailure(results)
		}
	} else if job.OnComplete != nil {
		job.OnComplete(results)
	}
	if job.OnCompletionCallback != nil {
		job.OnCompletionCallback()
	}
}

/**
 * @brief Shuts the job system down. In-flight jobs finish; jobs still
 * waiting on a queue are abandoned.
 */
func (js *JobSystem) Shutdown() error {
	close(js.done)
	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks when
 * the target queue is full.
 * @param jt The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) {
	queues := js.general
	if jt.JobType == metadata.JOB_TYPE_RESOURCE_LOAD {
		queues = js.resource
	}
	queues.byPriority(jt.Priority) <- jt
}

// SubmitNonBlocking queues the job from a separate goroutine and returns
// immediately.
func (js *JobSystem) SubmitNonBlocking(jt metadata.JobTask) {
	go js.Submit(jt)
}
