package worker

import "github.com/hbomb79/Hermes/pkg/logger"

var workerLogger = logger.Get("Worker")

type WorkerWakeupChan chan int

// WorkerStatus reflects where a worker is in its sleep/work cycle.
type WorkerStatus int

const (
	SLEEPING WorkerStatus = iota
	WORKING
	FINISHED
)

// WorkerTask is the unit of work given to a worker. The boolean
// return indicates whether any work was actually performed; a worker
// whose task found nothing to do is put back to sleep until the pool
// is woken again.
type WorkerTask func(Worker) (bool, error)

type Worker interface {
	Start()
	Status() WorkerStatus
	WakeupChan() WorkerWakeupChan
	Label() string
	Sleep() bool
	Close()
}

type taskWorker struct {
	label  string
	task   WorkerTask
	wakeup WorkerWakeupChan
	status WorkerStatus
}

func NewWorker(label string, task WorkerTask) *taskWorker {
	return &taskWorker{
		label:  label,
		task:   task,
		wakeup: make(WorkerWakeupChan),
		status: SLEEPING,
	}
}

// Start runs the worker's task in a loop. Each time the task reports
// that it found no work the worker goes to sleep until the pool wakes
// it; a closed wakeup channel ends the loop instead.
func (worker *taskWorker) Start() {
	workerLogger.Emit(logger.NEW, "Starting worker '%v'\n", worker.label)
	worker.status = WORKING

	for {
		didWork, err := worker.task(worker)
		if err != nil {
			workerLogger.Emit(logger.ERROR, "Worker '%v' task reported an error(%T): %v\n", worker.label, err, err.Error())
		} else if didWork {
			// More items may be queued behind the one just handled.
			continue
		}

		if !worker.Sleep() {
			return
		}
	}
}

func (worker *taskWorker) Status() WorkerStatus {
	return worker.status
}

func (worker *taskWorker) WakeupChan() WorkerWakeupChan {
	return worker.wakeup
}

func (worker *taskWorker) Label() string {
	return worker.label
}

// Sleep blocks until the wakeup channel is signalled. The return is
// false when the channel was closed instead, in which case the worker
// should exit rather than resume.
func (worker *taskWorker) Sleep() (isAlive bool) {
	worker.status = SLEEPING

	if _, isAlive = <-worker.wakeup; isAlive {
		worker.status = WORKING
	} else {
		workerLogger.Emit(logger.STOP, "Wakeup channel for worker '%v' has been closed - worker is exiting\n", worker.label)
		worker.status = FINISHED
	}

	return isAlive
}

// Close closes the wakeup channel. A worker mid-task will not notice
// until it next tries to sleep.
func (worker *taskWorker) Close() {
	close(worker.wakeup)
}
