package task

import (
	"sync"

	"github.com/nfowatch/nfowatch/pkg/logger"
)

var log = logger.Get("TaskGroup")

// Group is a supervised set of goroutines keyed by an arbitrary string
// (for this server, the absolute path of the file being processed).
// A key must be claimed before a task can be spawned for it, and a second
// claim for the same key fails until the first task releases it. This makes
// the set of claimed keys double as an in-flight guard: the lifetime of a
// claim is exactly the lifetime of the task that owns it.
type Group struct {
	*sync.Mutex
	wg       sync.WaitGroup
	inFlight map[string]struct{}
	closed   bool
}

func NewGroup() *Group {
	return &Group{
		Mutex:    &sync.Mutex{},
		inFlight: make(map[string]struct{}),
	}
}

// Claim marks the key as in-flight. Returns false if the key is already
// claimed, or if the group has been closed to new work.
func (group *Group) Claim(key string) bool {
	group.Lock()
	defer group.Unlock()

	if group.closed {
		return false
	}

	if _, ok := group.inFlight[key]; ok {
		return false
	}

	group.inFlight[key] = struct{}{}
	return true
}

// Release drops the claim on the key without running a task. This is only
// for the case where a claimed key never makes it to Go (e.g. the event
// queue rejected it); a running task must not release its own key.
func (group *Group) Release(key string) {
	group.Lock()
	defer group.Unlock()

	delete(group.inFlight, key)
}

// Go spawns fn in a new goroutine for a key that was previously claimed.
// The claim is released when fn returns, no matter how it returns. Spawning
// for an unclaimed key indicates a caller bug and is refused.
func (group *Group) Go(key string, fn func()) {
	group.Lock()
	defer group.Unlock()

	if _, ok := group.inFlight[key]; !ok {
		log.Warnf("Refusing to spawn task for unclaimed key '%s'\n", key)
		return
	}

	group.wg.Add(1)
	go func() {
		defer func() {
			group.Release(key)
			group.wg.Done()
		}()

		fn()
	}()
}

// Has reports whether the key is currently claimed.
func (group *Group) Has(key string) bool {
	group.Lock()
	defer group.Unlock()

	_, ok := group.inFlight[key]
	return ok
}

// Size returns the number of claimed keys.
func (group *Group) Size() int {
	group.Lock()
	defer group.Unlock()

	return len(group.inFlight)
}

// Close stops the group accepting new claims. Tasks already spawned are
// unaffected; use Wait to block until they finish.
func (group *Group) Close() {
	group.Lock()
	defer group.Unlock()

	group.closed = true
}

// Wait blocks until every spawned task has returned.
func (group *Group) Wait() {
	group.wg.Wait()
}
