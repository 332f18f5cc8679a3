package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// JobQueue orders queued jobs for admission. Admission is FIFO by queue time;
// retried jobs re-enter with a fresh queue time and therefore at the back, so
// a slow retry loop can never starve fresh submissions.
type JobQueue struct {
	entries []*queuedEntry
	mu      sync.Mutex
}

type queuedEntry struct {
	JobID    string
	QueuedAt time.Time
	Index    int // for heap.Interface
}

// NewJobQueue creates a new job queue.
func NewJobQueue() *JobQueue {
	jq := &JobQueue{entries: make([]*queuedEntry, 0)}
	heap.Init(jq)
	return jq
}

// Enqueue adds a job id with its queue time.
func (jq *JobQueue) Enqueue(jobID string, queuedAt time.Time) {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	heap.Push(jq, &queuedEntry{JobID: jobID, QueuedAt: queuedAt})
}

// PopJob removes and returns the earliest-queued job id.
func (jq *JobQueue) PopJob() (string, bool) {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	if jq.Len() == 0 {
		return "", false
	}

	item := heap.Pop(jq).(*queuedEntry)
	return item.JobID, true
}

// Remove drops a job id from the queue, if present.
func (jq *JobQueue) Remove(jobID string) {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	for _, entry := range jq.entries {
		if entry.JobID == jobID {
			heap.Remove(jq, entry.Index)
			return
		}
	}
}

// Size returns the number of queued jobs.
func (jq *JobQueue) Size() int {
	jq.mu.Lock()
	defer jq.mu.Unlock()
	return jq.Len()
}

// Len returns the number of jobs in the queue
func (jq *JobQueue) Len() int {
	return len(jq.entries)
}

// Less orders entries by queue time, earliest first
func (jq *JobQueue) Less(i, j int) bool {
	return jq.entries[i].QueuedAt.Before(jq.entries[j].QueuedAt)
}

// Swap swaps two entries
func (jq *JobQueue) Swap(i, j int) {
	jq.entries[i], jq.entries[j] = jq.entries[j], jq.entries[i]
	jq.entries[i].Index = i
	jq.entries[j].Index = j
}

// Push implements heap.Interface
func (jq *JobQueue) Push(x interface{}) {
	n := len(jq.entries)
	item := x.(*queuedEntry)
	item.Index = n
	jq.entries = append(jq.entries, item)
}

// Pop implements heap.Interface
func (jq *JobQueue) Pop() interface{} {
	old := jq.entries
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	jq.entries = old[0 : n-1]
	return item
}
