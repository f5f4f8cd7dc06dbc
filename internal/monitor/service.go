// Package monitor contains the ingestion pipeline: it watches configured
// folders for newly arrived media files, infers a title/year guess from each
// filename, resolves the guess against a metadata provider, and materializes
// an XML sidecar document (plus cover art) next to the media file, recording
// every terminal outcome in the processing ledger.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nfowatch/nfowatch/internal/event"
	"github.com/nfowatch/nfowatch/internal/ledger"
	"github.com/nfowatch/nfowatch/internal/parse"
	"github.com/nfowatch/nfowatch/internal/provider"
	"github.com/nfowatch/nfowatch/internal/sidecar"
	"github.com/nfowatch/nfowatch/pkg/logger"
	"github.com/nfowatch/nfowatch/pkg/task"
)

var log = logger.Get("Monitor")

const (
	// settleDelay is how long a newly detected file must rest before the
	// pipeline acts on it, giving a large copy time to finish. This is a
	// pipeline-wide constant, not per-file configuration.
	settleDelay = time.Second * 2

	eventQueueSize = 128
)

type (
	// Ledger is the append-only outcome store the pipeline writes to on
	// every terminal transition.
	Ledger interface {
		Append(entry *ledger.Entry) error
		List(limit int) ([]*ledger.Entry, error)
	}

	// ConfigStore persists the singleton watch configuration; Load
	// returning (nil, nil) means no configuration has been saved yet.
	ConfigStore interface {
		Load() (*WatchConfig, error)
		Save(config *WatchConfig) error
	}

	// Status is a point-in-time snapshot of the service for the
	// administrative surface.
	Status struct {
		Running           bool
		WatchedFolders    []string
		PreferredProvider string
		AutoProcess       bool
		FolderCount       int
		InFlight          int
	}

	// service owns the watch-folder configuration and the per-file task
	// lifecycle. The watch loop feeds accepted paths through an explicit
	// channel; the Run loop consumes it and spawns one supervised task per
	// file. Tasks for different files run concurrently with no ordering
	// guarantee; tasks for the same path are serialized by construction,
	// because the task group's claim set admits one claim per path.
	service struct {
		*sync.Mutex

		providers   *provider.Registry
		ledger      Ledger
		configStore ConfigStore
		eventBus    event.EventCoordinator

		config  WatchConfig
		events  chan string
		watcher *watcher
		group   *task.Group

		settleDelay time.Duration
		running     bool
	}
)

// New constructs the monitor service, reloading the persisted watch
// configuration if one exists and falling back to the provided defaults
// otherwise. The preferred provider is validated against the registry so a
// stale configuration fails loudly at startup rather than on the first file.
func New(defaults WatchConfig, providers *provider.Registry, ledgerStore Ledger, configStore ConfigStore, eventBus event.EventCoordinator) (*service, error) {
	config, err := configStore.Load()
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &defaults
	}

	if _, err := providers.Get(config.PreferredProvider); err != nil {
		return nil, fmt.Errorf("cannot construct monitor service: %w", err)
	}

	group := task.NewGroup()
	events := make(chan string, eventQueueSize)

	service := &service{
		Mutex:       &sync.Mutex{},
		providers:   providers,
		ledger:      ledgerStore,
		configStore: configStore,
		eventBus:    eventBus,
		config:      config.clone(),
		events:      events,
		watcher:     newWatcher(group, events),
		group:       group,
		settleDelay: settleDelay,
	}

	return service, nil
}

// Run installs filesystem watches for every configured folder and consumes
// accepted events until the context is cancelled. Cancellation stops the
// service admitting new work; file tasks already in flight run to their
// terminal state unforced.
func (service *service) Run(ctx context.Context) error {
	service.Lock()
	if service.running {
		service.Unlock()
		return errors.New("monitor service is already running")
	}
	service.running = true
	folders := append([]string(nil), service.config.Folders...)
	service.Unlock()

	for _, folder := range folders {
		if info, err := os.Stat(folder); err != nil || !info.IsDir() {
			log.Warnf("Watched folder '%s' no longer exists; skipping\n", folder)
			continue
		}

		if err := service.watcher.Watch(folder); err != nil {
			log.Errorf("Failed to watch folder '%s': %s\n", folder, err.Error())
		}
	}

	log.Infof("Folder monitoring started (%d folders)\n", len(folders))

	for {
		select {
		case path := <-service.events:
			service.group.Go(path, func() { service.processFile(path) })
		case <-ctx.Done():
			service.stop()
			return nil
		}
	}
}

// stop tears down the watches and closes the task group to new claims, then
// rolls back claims for events that were queued but never spawned.
func (service *service) stop() {
	service.watcher.Stop()
	service.group.Close()

	for {
		select {
		case path := <-service.events:
			service.group.Release(path)
		default:
			service.Lock()
			service.running = false
			service.Unlock()

			log.Emit(logger.STOP, "Folder monitoring stopped\n")
			return
		}
	}
}

// processFile drives one file through the pipeline state machine. It runs
// inside a supervised task whose claim on the path is released when this
// method returns; every exit path below is therefore a terminal transition.
func (service *service) processFile(path string) {
	item := newItem(path)
	log.Emit(logger.NEW, "Processing '%s'\n", path)

	if !service.snapshotConfig().AutoProcess {
		item.State = Done
		item.Skipped = true
		log.Debugf("Auto-processing disabled; %s\n", item)
		return
	}

	item.State = Debouncing
	time.Sleep(service.settleDelay)

	sidecarPath := sidecar.PathFor(path)
	if _, err := os.Stat(sidecarPath); err == nil {
		item.State = Done
		item.Skipped = true
		log.Infof("Sidecar already exists; %s\n", item)
		return
	}

	item.State = Parsing
	guess := parse.Parse(filepath.Base(path))
	item.Guess = &guess
	if guess.Unparseable() {
		service.failItem(item, "unparseable filename")
		return
	}

	log.Debugf("Parsed '%s' in to %+v\n", path, guess)

	item.State = Searching
	config := service.snapshotConfig()
	prov, err := service.providers.Get(config.PreferredProvider)
	if err != nil {
		service.failItem(item, err.Error())
		return
	}

	candidates, err := prov.Search(guess.Title)
	if err != nil {
		service.failItem(item, err.Error())
		return
	}
	if len(candidates) == 0 {
		service.failItem(item, "no search results")
		return
	}

	candidate := selectCandidate(candidates, guess.Year)

	item.State = Fetching
	record, err := prov.Fetch(candidate.ID)
	if err != nil {
		service.failItem(item, err.Error())
		return
	}

	item.State = Generating
	document, assets, err := sidecar.Generate(record)
	if err != nil {
		service.failItem(item, err.Error())
		return
	}

	// A sidecar may have appeared while this task was waiting on the
	// provider; generation never overwrites silently.
	if _, err := os.Stat(sidecarPath); err == nil {
		item.State = Done
		item.Skipped = true
		log.Infof("Sidecar appeared during processing; %s\n", item)
		return
	}

	if err := os.WriteFile(sidecarPath, []byte(document), 0o644); err != nil {
		service.failItem(item, err.Error())
		return
	}

	downloadAssets(path, assets)

	entry := ledger.NewSuccess(path, sidecarPath, record.Source, record.SourceID)
	if err := service.ledger.Append(entry); err != nil {
		log.Errorf("Failed to record success for '%s': %s\n", path, err.Error())
	}

	item.State = Done
	service.eventBus.Dispatch(event.FILE_COMPLETE, entry.ID)
	log.Emit(logger.SUCCESS, "Sidecar created at '%s' (provider %s, id %s); %s\n", sidecarPath, record.Source, record.SourceID, item)
}

// failItem records the terminal failure in the ledger, preserving the error
// description verbatim, and announces it on the event bus. Failures never
// propagate beyond the owning task.
func (service *service) failItem(item *Item, reason string) {
	item.State = Failed

	entry := ledger.NewFailure(item.Path, guessToLedger(item.Guess), reason)
	if err := service.ledger.Append(entry); err != nil {
		log.Errorf("Failed to record failure for '%s': %s\n", item.Path, err.Error())
	}

	service.eventBus.Dispatch(event.FILE_FAILED, entry.ID)
	log.Warnf("Processing failed (%s); %s\n", reason, item)
}

// selectCandidate applies the year tie-break: the first candidate whose
// title contains the parsed year as a substring wins, else the first
// candidate overall. The substring check is a known-imprecise heuristic
// (any four digits in the title can match) and is kept as-is.
func selectCandidate(candidates []provider.Candidate, year *int) provider.Candidate {
	if year != nil {
		needle := strconv.Itoa(*year)
		for _, candidate := range candidates {
			if strings.Contains(candidate.Title, needle) {
				return candidate
			}
		}
	}

	return candidates[0]
}

// AddFolder registers a new directory for watching. The path must exist and
// be a directory; this is validated synchronously so a bad path never enters
// the pipeline. The new configuration is persisted before this method
// returns. Adding an already-watched folder is a no-op.
func (service *service) AddFolder(folder string) error {
	absolute, err := filepath.Abs(folder)
	if err != nil {
		return fmt.Errorf("invalid folder path '%s': %w", folder, err)
	}

	info, err := os.Stat(absolute)
	if err != nil {
		return fmt.Errorf("folder does not exist: %s", absolute)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absolute)
	}

	service.Lock()
	if service.config.hasFolder(absolute) {
		service.Unlock()
		log.Infof("Folder already being watched: %s\n", absolute)
		return nil
	}

	service.config.Folders = append(service.config.Folders, absolute)
	if err := service.configStore.Save(&service.config); err != nil {
		service.config.removeFolder(absolute)
		service.Unlock()
		return err
	}
	running := service.running
	service.Unlock()

	if running {
		if err := service.watcher.Watch(absolute); err != nil {
			return err
		}
	}

	service.eventBus.Dispatch(event.CONFIG_UPDATE, nil)
	log.Emit(logger.NEW, "Added watched folder: %s\n", absolute)
	return nil
}

// RemoveFolder stops watching the given directory, leaving other watches
// untouched. Returns false if the folder was not being watched.
func (service *service) RemoveFolder(folder string) (bool, error) {
	absolute, err := filepath.Abs(folder)
	if err != nil {
		return false, fmt.Errorf("invalid folder path '%s': %w", folder, err)
	}

	service.Lock()
	if !service.config.removeFolder(absolute) {
		service.Unlock()
		return false, nil
	}

	if err := service.configStore.Save(&service.config); err != nil {
		service.config.Folders = append(service.config.Folders, absolute)
		service.Unlock()
		return false, err
	}
	service.Unlock()

	service.watcher.Unwatch(absolute)
	service.eventBus.Dispatch(event.CONFIG_UPDATE, nil)
	log.Emit(logger.REMOVE, "Removed watched folder: %s\n", absolute)
	return true, nil
}

// UpdateConfig changes the preferred provider and the auto-process flag,
// persisting before returning. The provider identifier must be registered.
func (service *service) UpdateConfig(preferredProvider string, autoProcess bool) error {
	if _, err := service.providers.Get(preferredProvider); err != nil {
		return err
	}

	service.Lock()
	previousProvider, previousAuto := service.config.PreferredProvider, service.config.AutoProcess
	service.config.PreferredProvider = preferredProvider
	service.config.AutoProcess = autoProcess

	if err := service.configStore.Save(&service.config); err != nil {
		service.config.PreferredProvider, service.config.AutoProcess = previousProvider, previousAuto
		service.Unlock()
		return err
	}
	service.Unlock()

	service.eventBus.Dispatch(event.CONFIG_UPDATE, nil)
	return nil
}

// GetStatus reports the current service state.
func (service *service) GetStatus() Status {
	service.Lock()
	defer service.Unlock()

	return Status{
		Running:           service.running,
		WatchedFolders:    append([]string(nil), service.config.Folders...),
		PreferredProvider: service.config.PreferredProvider,
		AutoProcess:       service.config.AutoProcess,
		FolderCount:       len(service.config.Folders),
		InFlight:          service.group.Size(),
	}
}

// ScanFolder lists the video files in the folder which have no adjacent
// sidecar yet. When the service is running, each listed file is also queued
// for processing (a failed run leaves no sidecar behind, so rescanning a
// folder is how failed files are re-attempted).
func (service *service) ScanFolder(folder string) ([]string, error) {
	absolute, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("invalid folder path '%s': %w", folder, err)
	}

	dirEntries, err := os.ReadDir(absolute)
	if err != nil {
		return nil, fmt.Errorf("failed to scan folder '%s': %w", absolute, err)
	}

	unprocessed := make([]string, 0)
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}

		path := filepath.Join(absolute, dirEntry.Name())
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := videoExtensions[ext]; !ok {
			continue
		}

		if _, err := os.Stat(sidecar.PathFor(path)); err == nil {
			continue
		}

		unprocessed = append(unprocessed, path)
	}

	log.Infof("Found %d files without a sidecar in %s\n", len(unprocessed), absolute)

	service.Lock()
	running := service.running
	service.Unlock()
	if running {
		for _, path := range unprocessed {
			service.watcher.accept(path)
		}
	}

	return unprocessed, nil
}

// ListLedger returns the most recent ledger entries, newest first.
func (service *service) ListLedger(limit int) ([]*ledger.Entry, error) {
	return service.ledger.List(limit)
}

func (service *service) snapshotConfig() WatchConfig {
	service.Lock()
	defer service.Unlock()

	return service.config.clone()
}

func guessToLedger(guess *parse.Guess) *ledger.Guess {
	if guess == nil {
		return nil
	}

	return &ledger.Guess{
		Title:   guess.Title,
		Year:    guess.Year,
		Quality: guess.Quality,
	}
}
