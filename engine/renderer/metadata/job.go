package metadata

/** @brief Describes a type of job */
type JobType int

const (
	/**
	 * @brief A general job that does not have any specific thread requirements.
	 * This means it matters little which job thread this job runs on.
	 */
	JOB_TYPE_GENERAL JobType = 0x02
	/**
	 * @brief A resource loading job. Resources should always load on the same thread
	 * to avoid potential disk thrashing.
	 */
	JOB_TYPE_RESOURCE_LOAD JobType = 0x04
)

/**
 * @brief Determines which queue a job lands on. Workers pick waiting
 * high-priority jobs before normal ones, and normal before low.
 */
type JobPriority int

const (
	/** @brief The lowest-priority job, used for things that can wait to be done if need be, such as log flushing. */
	JOB_PRIORITY_LOW JobPriority = iota
	/** @brief A normal-priority job. Should be used for medium-priority tasks such as loading assets. */
	JOB_PRIORITY_NORMAL
	/** @brief The highest-priority job. Should be used sparingly, and only for time-critical operations.*/
	JOB_PRIORITY_HIGH
)

/**
 * @brief Describes a job to be run on a worker. Results must be handed back
 * to the frame goroutine through the params channel; workers never touch
 * renderer state themselves.
 */
type JobTask struct {
	/** @brief The type of job. */
	JobType JobType
	/** @brief The priority of this job. */
	Priority JobPriority
	/** @brief Invoked on the worker when the job starts. Required. */
	OnStart func(params interface{}, results chan interface{}) error
	/** @brief Invoked on the worker when OnStart returns nil. Optional. */
	OnComplete func(results chan interface{})
	/** @brief Invoked on the worker when OnStart returns an error. Optional. */
	OnFailure func(results chan interface{})
	/** @brief Data passed to OnStart. */
	InputParams interface{}
	/** @brief Invoked after the job finishes regardless of outcome. Optional. */
	OnCompletionCallback func()
}
