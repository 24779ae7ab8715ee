package config

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads the config file whenever it is written and hands the
// new Config to a callback. Bursts of writes are coalesced.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*Config)

	debounced func(f func())
	done      chan struct{}
}

// Watch starts watching path. The parent directory is watched so that
// editors which replace the file on save are still seen.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}

	w := &Watcher{
		path:      absPath,
		watcher:   watcher,
		onChange:  onChange,
		debounced: debounce.New(reloadDebounce),
		done:      make(chan struct{}),
	}
	go w.loop()
	log.Printf("config watcher: watching %s", absPath)
	return w, nil
}

// Close stops the watcher. A reload already scheduled may still run.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if absPath, _ := filepath.Abs(event.Name); absPath != w.path {
				continue
			}
			w.debounced(w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher: error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.Printf("config watcher: reload %s: %v", w.path, err)
		return
	}
	log.Printf("config watcher: reloaded %s", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
