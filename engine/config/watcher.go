package config

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/vulcano/engine/core"
)

/**
 * @brief Watcher reloads the configuration file whenever it changes on
 * disk and hands the fresh Config to the registered callback. Only the
 * hot-reloadable sections (trace, log level) should be re-applied by
 * the callback; limits are consumed once at system creation.
 */
type Watcher struct {
	path     string
	onChange func(*Config)

	mutex    sync.Mutex
	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     path,
		onChange: onChange,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}

	// Watch the directory, not the file: editors replace files on save
	// and the watch would die with the old inode.
	if err := fsWatch.Add(filepath.Dir(path)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	go w.start()
	return w, nil
}

func (w *Watcher) start() {
	for {
		select {
		case e := <-w.fsnotify.Events:
			if filepath.Clean(e.Name) != filepath.Clean(w.path) {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				cfg, err := Load(w.path)
				if err != nil {
					core.LogWarn("config reload failed, keeping previous values: %s", err.Error())
					continue
				}
				core.LogInfo("config file `%s` reloaded", w.path)
				w.onChange(cfg)
			}
		case err := <-w.fsnotify.Errors:
			if err != nil {
				core.LogError("config watcher: %s", err.Error())
			}
		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

func (w *Watcher) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.isClosed {
		return errors.New("config watcher already closed")
	}
	w.isClosed = true
	close(w.done)
	return nil
}
