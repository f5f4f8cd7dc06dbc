package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nfowatch/nfowatch/pkg/logger"
	"github.com/rjeczalik/notify"
)

// videoExtensions is the fixed allow-list of container extensions the
// watcher reacts to; everything else arriving in a watched folder is
// ignored outright.
var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".avi": {}, ".mov": {}, ".wmv": {},
	".flv": {}, ".webm": {}, ".m4v": {}, ".mpg": {}, ".mpeg": {},
	".3gp": {}, ".m2ts": {}, ".ts": {},
}

// claimer guards against duplicate in-flight processing of a single path.
// Claim must be O(1) and non-blocking; the watcher calls it on the event
// dispatch path.
type claimer interface {
	Claim(key string) bool
	Release(key string)
}

// watcher converts raw create/move filesystem notifications for a set of
// non-recursively watched directories into a deduplicated stream of
// candidate media file paths on the events channel.
//
// The watcher only ever *claims* a path; releasing it is the orchestrator's
// job, and happens exclusively when the file's task reaches a terminal
// state. A second event for a claimed path is discarded silently.
type watcher struct {
	*sync.Mutex
	claims  claimer
	events  chan<- string
	watches map[string]chan notify.EventInfo
}

func newWatcher(claims claimer, events chan<- string) *watcher {
	return &watcher{
		Mutex:   &sync.Mutex{},
		claims:  claims,
		events:  events,
		watches: make(map[string]chan notify.EventInfo),
	}
}

// Watch installs a non-recursive watch on the folder. Watching an
// already-watched folder is a no-op.
func (watcher *watcher) Watch(folder string) error {
	watcher.Lock()
	defer watcher.Unlock()

	if _, ok := watcher.watches[folder]; ok {
		return nil
	}

	eventChannel := make(chan notify.EventInfo, 16)
	if err := notify.Watch(folder, eventChannel, notify.Create, notify.Rename); err != nil {
		return fmt.Errorf("failed to install watch on '%s': %w", folder, err)
	}

	watcher.watches[folder] = eventChannel
	go watcher.pump(eventChannel)

	log.Emit(logger.NEW, "Now watching folder '%s'\n", folder)
	return nil
}

// Unwatch tears down the watch for the folder without affecting any other
// watched folder.
func (watcher *watcher) Unwatch(folder string) {
	watcher.Lock()
	defer watcher.Unlock()

	if eventChannel, ok := watcher.watches[folder]; ok {
		notify.Stop(eventChannel)
		close(eventChannel)
		delete(watcher.watches, folder)

		log.Emit(logger.REMOVE, "Stopped watching folder '%s'\n", folder)
	}
}

// Stop tears down every installed watch. In-flight file tasks are not this
// component's concern and are unaffected.
func (watcher *watcher) Stop() {
	watcher.Lock()
	defer watcher.Unlock()

	for folder, eventChannel := range watcher.watches {
		notify.Stop(eventChannel)
		close(eventChannel)
		delete(watcher.watches, folder)
	}
}

// pump drains a single folder's notification channel until it is closed by
// Unwatch/Stop.
func (watcher *watcher) pump(eventChannel chan notify.EventInfo) {
	for event := range eventChannel {
		watcher.accept(event.Path())
	}
}

// accept applies the extension filter and the in-flight claim, then hands
// the path to the orchestrator's event queue. This is the hot path of the
// watch loop: it never blocks on pipeline work - if the queue is full the
// claim is rolled back and the event dropped with a warning (a later rescan
// will pick the file back up).
func (watcher *watcher) accept(path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; !ok {
		return
	}

	// A rename event fires for moves in both directions; for a move OUT of
	// a watched folder the reported path is the departed source, which must
	// not enter the pipeline.
	if _, err := os.Stat(path); err != nil {
		log.Verbosef("Discarding event for non-existent path '%s'\n", path)
		return
	}

	if !watcher.claims.Claim(path) {
		log.Verbosef("Discarding duplicate event for in-flight path '%s'\n", path)
		return
	}

	select {
	case watcher.events <- path:
	default:
		watcher.claims.Release(path)
		log.Warnf("Event queue full; dropping event for '%s'\n", path)
	}
}
