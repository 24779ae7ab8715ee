// Package app composes storage, the remote store, the sync service and an
// editing session into one running annotator.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"annotator/internal/config"
	"annotator/internal/domain"
	"annotator/internal/editor"
	"annotator/internal/remote"
	"annotator/internal/secret"
	"annotator/internal/service"
	"annotator/internal/storage"
	"annotator/internal/viewer"
)

// Options tweak how New assembles the App.
type Options struct {
	// ConfigPath enables hot reload of keybindings and tolerances.
	ConfigPath string
	Emitter    service.EventEmitter
	// SkipHydrate leaves the session empty instead of loading the
	// image's annotations from the remote.
	SkipHydrate bool
	// Secrets overrides the backend named in the config.
	Secrets secret.SecretStore
}

// App owns every long-lived component.
type App struct {
	cfg     *config.Config
	cfgPath string

	db       *storage.DB
	pending  *storage.PendingStore
	settings *storage.SettingsStore
	runs     *storage.CalibrationStore

	remote  domain.RemoteStore
	sync    *service.SyncService
	viewer  *viewer.Headless
	session *editor.Session
	watcher *config.Watcher
}

// noopEmitter is a no-op EventEmitter used when nothing renders events.
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}

// New opens storage and the remote store and builds the session for
// cfg.ImageID. The caller must call Shutdown.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	_ = cfg.Validate()
	emitter := opts.Emitter
	if emitter == nil {
		if cfg.Debug {
			emitter = service.LogEmitter{}
		} else {
			emitter = noopEmitter{}
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.New(filepath.Join(cfg.DataDir, "annotator.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{
		cfg:      cfg,
		cfgPath:  opts.ConfigPath,
		db:       db,
		pending:  storage.NewPendingStore(db),
		settings: storage.NewSettingsStore(db),
		runs:     storage.NewCalibrationStore(db),
	}

	secrets := opts.Secrets
	if secrets == nil {
		if secrets, err = secret.New(cfg.Remote.SecretBackend); err != nil {
			db.Close()
			return nil, err
		}
	}
	token, err := secret.Lookup(secrets, cfg.Remote.SecretKey)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read remote secret: %w", err)
	}
	a.remote, err = remote.New(cfg.Connection(), token, cfg.RequestTimeout())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open remote: %w", err)
	}

	a.sync = service.NewSyncService(a.remote, a.pending, emitter, cfg.RequestTimeout())

	keymap, err := KeymapFromConfig(cfg)
	if err != nil {
		a.closeStores()
		return nil, err
	}

	a.viewer = viewer.NewHeadless(cfg.Viewer.ContainerWidth, cfg.Viewer.ContainerHeight)
	a.session = editor.NewSession(a.viewer, a.sync, editor.Options{
		ImageID:         cfg.ImageID,
		PointTolerance:  cfg.PointTolerance,
		CloseThreshold:  cfg.CloseThreshold,
		GridSize:        cfg.GridSize,
		Keymap:          keymap,
		CalibrationMode: cfg.CalibrationMode,
		Settings:        a.settings,
		Recorder:        a.runs,
	})
	a.session.SetRenderer(editor.NewRenderer(a.viewer))

	if cfg.Viewer.ImageWidth > 0 && cfg.Viewer.ImageHeight > 0 {
		a.viewer.Open(cfg.Viewer.ImageWidth, cfg.Viewer.ImageHeight)
	}

	if !opts.SkipHydrate {
		a.hydrate(ctx)
	}
	a.session.OnOpen()
	return a, nil
}

// hydrate loads the image's annotations when the remote can serve them.
// A failure leaves the session empty but usable.
func (a *App) hydrate(ctx context.Context) {
	src, ok := a.remote.(domain.AnnotationSource)
	if !ok {
		log.Printf("app: remote %s cannot list annotations; starting empty", a.cfg.Remote.Driver)
		return
	}
	hctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout())
	defer cancel()
	if err := a.session.Hydrate(hctx, src); err != nil {
		log.Printf("app: hydrate image %d: %v", a.cfg.ImageID, err)
	}
}

// KeymapFromConfig builds the editor keymap from the config's bindings.
func KeymapFromConfig(cfg *config.Config) (*editor.Keymap, error) {
	bindings := make(map[editor.Action]string, len(cfg.Keybindings))
	for action, key := range cfg.Keybindings {
		bindings[editor.Action(action)] = key
	}
	k, err := editor.NewKeymap(bindings)
	if err != nil {
		return nil, fmt.Errorf("keybindings: %w", err)
	}
	return k, nil
}

// Start begins the retry schedule and, when a config path was given,
// watches it for changes.
func (a *App) Start() error {
	if err := a.sync.Start(a.cfg.RetryInterval()); err != nil {
		return err
	}
	if a.cfgPath == "" {
		return nil
	}
	if _, err := os.Stat(a.cfgPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	w, err := config.Watch(a.cfgPath, a.applyConfig)
	if err != nil {
		log.Printf("app: config watcher disabled: %v", err)
		return nil
	}
	a.watcher = w
	return nil
}

// applyConfig pushes reloadable settings into the running session.
func (a *App) applyConfig(cfg *config.Config) {
	keymap, err := KeymapFromConfig(cfg)
	if err != nil {
		log.Printf("app: ignoring reloaded keybindings: %v", err)
		keymap = nil
	}
	a.session.Reconfigure(keymap, cfg.PointTolerance, cfg.CloseThreshold)
}

// Shutdown stops background work, waits for in-flight sends (bounded by
// ctx) and closes every store.
func (a *App) Shutdown(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Close()
		a.watcher = nil
	}
	a.sync.Stop()
	a.sync.Wait(ctx)
	a.closeStores()
}

func (a *App) closeStores() {
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			log.Printf("app: close remote: %v", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *App) Config() *config.Config                  { return a.cfg }
func (a *App) Session() *editor.Session                { return a.session }
func (a *App) Sync() *service.SyncService              { return a.sync }
func (a *App) Viewer() *viewer.Headless                { return a.viewer }
func (a *App) Calibrations() *storage.CalibrationStore { return a.runs }
