package dispatch

import "sync"

// taskLocks serializes every dispatcher call on a given task_id (spec.md
// §5: "MUST serialize all operations on a given task_id"), while letting
// different tasks proceed concurrently — per-key locking over a sync.Map,
// grounded on the teacher pack's cloudshipai-station SessionManager
// (internal/services/sandbox_session_manager.go), which keys a sync.Map
// of live sessions the same way and double-checks under a secondary mutex
// only for the create path. Here every call needs the full lock (not just
// creation), so the secondary mutex isn't needed: acquiring the per-task
// *sync.Mutex itself is the critical section.
type taskLocks struct {
	locks sync.Map // task_id -> *sync.Mutex
}

// lockFor returns the mutex for taskID, creating it on first use. LoadOrStore
// makes concurrent first-time creation race-free without a second global lock.
func (t *taskLocks) lockFor(taskID string) *sync.Mutex {
	mu := &sync.Mutex{}
	actual, _ := t.locks.LoadOrStore(taskID, mu)
	return actual.(*sync.Mutex)
}

// withTaskLock runs fn while holding taskID's exclusive lock.
func (t *taskLocks) withTaskLock(taskID string, fn func() *Result) *Result {
	mu := t.lockFor(taskID)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}
