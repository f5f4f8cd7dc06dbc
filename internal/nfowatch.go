package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/nfowatch/nfowatch/internal/database"
	"github.com/nfowatch/nfowatch/internal/event"
	"github.com/nfowatch/nfowatch/internal/http/tmdb"
	"github.com/nfowatch/nfowatch/internal/ledger"
	"github.com/nfowatch/nfowatch/internal/monitor"
	"github.com/nfowatch/nfowatch/internal/provider"
	"github.com/nfowatch/nfowatch/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	// MonitorService is the control surface of the folder monitor as seen
	// by the rest of the application.
	MonitorService interface {
		RunnableService
		AddFolder(folder string) error
		RemoveFolder(folder string) (bool, error)
		UpdateConfig(preferredProvider string, autoProcess bool) error
		GetStatus() monitor.Status
		ScanFolder(folder string) ([]string, error)
		ListLedger(limit int) ([]*ledger.Entry, error)
	}
)

// nfoWatch represents the top-level object for the application, responsible
// for connecting the database, registering the metadata providers and
// bringing up the monitor service.
type nfoWatch struct {
	eventBus       event.EventCoordinator
	config         Config
	monitorService MonitorService
}

func New(config Config) *nfoWatch {
	return &nfoWatch{
		eventBus: event.New(),
		config:   config,
	}
}

// Run brings up the database connection and the monitor service, and blocks
// until the provided context is cancelled or a service crashes.
func (watch *nfoWatch) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	log.Emit(logger.NEW, "Connecting to database...\n")
	db := database.New()
	if err := db.Connect(watch.config.Database); err != nil {
		return err
	}

	providers := provider.NewRegistry()
	providers.Register(tmdb.Name, tmdb.New(watch.config.tmdbConfig()))
	log.Debugf("Registered metadata providers: %v\n", providers.Names())

	defaults := monitor.WatchConfig{
		Folders:           watch.config.Monitor.WatchedFolders,
		PreferredProvider: watch.config.Monitor.PreferredProvider,
		AutoProcess:       watch.config.Monitor.AutoProcess,
	}

	monitorService, err := monitor.New(
		defaults,
		providers,
		&ledgerStoreAdapter{db: db, store: ledger.NewStore()},
		&configStoreAdapter{db: db, store: monitor.NewConfigStore()},
		watch.eventBus,
	)
	if err != nil {
		return fmt.Errorf("failed to construct monitor service: %w", err)
	}
	watch.monitorService = monitorService

	wg := &sync.WaitGroup{}
	watch.spawnAsyncService(ctx, wg, monitorService, "monitor-service", crashHandler)
	log.Emit(logger.SUCCESS, "nfowatch services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService will run the provided function/service as its own
// go-routine, ensuring that the service waitgroup is updated correctly
func (watch *nfoWatch) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}

// ledgerStoreAdapter binds the connected database to the ledger store,
// giving the monitor service a queryable-free view of the ledger.
type ledgerStoreAdapter struct {
	db    database.Manager
	store *ledger.Store
}

func (adapter *ledgerStoreAdapter) Append(entry *ledger.Entry) error {
	return adapter.store.Append(adapter.db.GetSqlxDb(), entry)
}

func (adapter *ledgerStoreAdapter) List(limit int) ([]*ledger.Entry, error) {
	return adapter.store.List(adapter.db.GetSqlxDb(), limit)
}

type configStoreAdapter struct {
	db    database.Manager
	store *monitor.DBConfigStore
}

func (adapter *configStoreAdapter) Load() (*monitor.WatchConfig, error) {
	return adapter.store.Load(adapter.db.GetSqlxDb())
}

func (adapter *configStoreAdapter) Save(config *monitor.WatchConfig) error {
	return adapter.store.Save(adapter.db.GetSqlxDb(), config)
}
