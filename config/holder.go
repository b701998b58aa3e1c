// Package config provides configuration loading and hot reload.
package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the holder waits after a file event before
// reloading. Editors often emit several events for one save.
const DefaultDebounce = 100 * time.Millisecond

// Holder owns the live registry configuration. Readers call Get; reloads
// swap the whole value so a reader never sees a half-applied config.
//
// File events and SIGHUP both feed a single reload loop, which coalesces
// triggers that arrive within the debounce window.
type Holder struct {
	path   string
	logger zerolog.Logger

	current    atomic.Pointer[Config]
	generation atomic.Uint64

	// reloadMu serializes Load and the listener fan-out.
	reloadMu sync.Mutex

	listenersMu sync.Mutex
	onChange    []func(*Config)
	onError     []func(error)

	debounce time.Duration
	triggers chan string
	loopOnce sync.Once

	watcher  *fsnotify.Watcher
	signals  chan os.Signal
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHolder loads path and returns a holder serving it. Watching starts only
// when WatchFile or WatchSignals is called.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	h := &Holder{
		path:     abs,
		logger:   logger.With().Str("component", "config").Logger(),
		debounce: DefaultDebounce,
		triggers: make(chan string, 1),
		stop:     make(chan struct{}),
	}
	h.current.Store(cfg)
	return h, nil
}

// Get returns the live configuration. The value must not be modified.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// Generation counts successful reloads since NewHolder.
func (h *Holder) Generation() uint64 {
	return h.generation.Load()
}

// SetDebounce changes the coalescing window. Call it before WatchFile.
func (h *Holder) SetDebounce(d time.Duration) {
	if d < 0 {
		d = 0
	}
	h.debounce = d
}

// OnChange registers fn to run after every applied reload.
func (h *Holder) OnChange(fn func(*Config)) {
	h.listenersMu.Lock()
	h.onChange = append(h.onChange, fn)
	h.listenersMu.Unlock()
}

// OnReloadError registers fn to run when a reload is rejected.
func (h *Holder) OnReloadError(fn func(error)) {
	h.listenersMu.Lock()
	h.onError = append(h.onError, fn)
	h.listenersMu.Unlock()
}

// Reload reads the file again. A config that fails to load or validate is
// rejected and the previous one stays live.
func (h *Holder) Reload() error {
	return h.reload("manual")
}

func (h *Holder) reload(trigger string) error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	next, err := Load(h.path)
	if err != nil {
		err = fmt.Errorf("reload config: %w", err)
		h.logger.Error().Err(err).Str("trigger", trigger).Msg("config rejected, keeping previous")
		for _, fn := range h.errorListeners() {
			fn(err)
		}
		return err
	}

	prev := h.current.Swap(next)
	gen := h.generation.Add(1)

	for _, c := range Diff(prev, next) {
		h.logChange(c, prev, next)
	}
	for _, fn := range h.changeListeners() {
		fn(next)
	}

	h.logger.Info().Str("trigger", trigger).Uint64("generation", gen).Msg("config reloaded")
	return nil
}

func (h *Holder) changeListeners() []func(*Config) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	fns := make([]func(*Config), len(h.onChange))
	copy(fns, h.onChange)
	return fns
}

func (h *Holder) errorListeners() []func(error) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	fns := make([]func(error), len(h.onError))
	copy(fns, h.onError)
	return fns
}

// logChange reports one changed field. Only logging.level carries values;
// auth.token in particular is named but never printed.
func (h *Holder) logChange(c Change, prev, next *Config) {
	if c.Reloadable {
		h.logger.Info().
			Str("field", c.Field).
			Str("old", prev.Logging.Level).
			Str("new", next.Logging.Level).
			Msg("config field applied")
		return
	}
	h.logger.Warn().Str("field", c.Field).Msg("config field changed, restart to apply")
}

// WatchFile reloads when the config file is written or replaced. The parent
// directory is watched so atomic renames by editors are seen.
func (h *Holder) WatchFile() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	h.watcher = w
	h.startLoop()

	name := filepath.Base(h.path)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					h.request("file")
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				h.logger.Error().Err(err).Msg("config watcher error")
			case <-h.stop:
				return
			}
		}
	}()

	h.logger.Info().Str("path", h.path).Msg("watching config file")
	return nil
}

// WatchSignals reloads on SIGHUP.
func (h *Holder) WatchSignals() {
	h.signals = make(chan os.Signal, 1)
	signal.Notify(h.signals, syscall.SIGHUP)
	h.startLoop()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-h.signals:
				h.request("sighup")
			case <-h.stop:
				return
			}
		}
	}()

	h.logger.Info().Msg("reloading config on SIGHUP")
}

// Stop ends watching and waits for the background goroutines. It is safe to
// call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
		if h.signals != nil {
			signal.Stop(h.signals)
		}
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
	h.wg.Wait()
}

// request queues a reload. A pending trigger absorbs later ones.
func (h *Holder) request(trigger string) {
	select {
	case h.triggers <- trigger:
	default:
	}
}

func (h *Holder) startLoop() {
	h.loopOnce.Do(func() {
		h.wg.Add(1)
		go h.loop()
	})
}

// loop waits for a trigger, then for the debounce window to pass without a
// new one, and reloads once.
func (h *Holder) loop() {
	defer h.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	var pending string

	for {
		select {
		case t := <-h.triggers:
			pending = t
			timer.Reset(h.debounce)
		case <-timer.C:
			if pending == "" {
				continue
			}
			trigger := pending
			pending = ""
			// The error was already logged and fanned out.
			_ = h.reload(trigger)
		case <-h.stop:
			timer.Stop()
			return
		}
	}
}

// Change names a field that differs between two configs.
type Change struct {
	Field      string
	Reloadable bool
}

// Diff lists the fields that differ between prev and next, in a stable order.
func Diff(prev, next *Config) []Change {
	var out []Change
	add := func(field string, changed bool) {
		if changed {
			out = append(out, Change{Field: field, Reloadable: isReloadable(field)})
		}
	}

	add("logging.level", prev.Logging.Level != next.Logging.Level)
	add("logging.format", prev.Logging.Format != next.Logging.Format)
	add("server.host", prev.Server.Host != next.Server.Host)
	add("server.port", prev.Server.Port != next.Server.Port)
	add("auth.token", prev.Auth.Token != next.Auth.Token)
	add("catalog.path", prev.Catalog.Path != next.Catalog.Path)
	add("files", prev.Files.Backend != next.Files.Backend ||
		prev.Files.Root != next.Files.Root ||
		prev.Files.S3 != next.Files.S3)
	return out
}

var reloadable = map[string]bool{
	"logging.level": true,
}

func isReloadable(field string) bool {
	return reloadable[field]
}

// ReloadableFields returns the fields a reload applies without a restart.
func ReloadableFields() []string {
	return []string{"logging.level"}
}

// NonReloadableFields returns the fields that are only read at startup.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"auth.token",
		"catalog.path",
		"files",
		"recipes",
		"logging.format",
		"metrics",
	}
}
