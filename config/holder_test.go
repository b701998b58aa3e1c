package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/faktion/registry/config"
	"github.com/rs/zerolog"
)

func TestHolder_Get(t *testing.T) {
	cfg := writeConfig(t, validConfig())

	h, err := config.NewHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", got.Logging.Level)
	}
}

func TestHolder_Reload(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	// Verify initial config
	cfg := h.Get()
	if cfg.Logging.Level != "info" {
		t.Errorf("initial Logging.Level = %s, want info", cfg.Logging.Level)
	}

	// Write new config
	newContent := `
auth:
  token: "secret123"

logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	// Reload
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	// Verify new config
	cfg = h.Get()
	if cfg.Logging.Level != "debug" {
		t.Errorf("reloaded Logging.Level = %s, want debug", cfg.Logging.Level)
	}
}

func TestHolder_OnChange(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var called bool
	var receivedCfg *config.Config

	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		called = true
		receivedCfg = cfg
		mu.Unlock()
	})

	// Write new config and reload
	newContent := `
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	if !called {
		t.Error("OnChange callback was not called")
	}
	if receivedCfg == nil {
		t.Error("received nil config in callback")
	} else if receivedCfg.Logging.Level != "warn" {
		t.Errorf("callback received level = %s, want warn", receivedCfg.Logging.Level)
	}
	mu.Unlock()
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	// Write invalid config
	invalidContent := `
logging:
  level: verbose
`
	if err := os.WriteFile(path, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	// Reload should fail
	err = h.Reload()
	if err == nil {
		t.Error("Reload should fail for invalid config")
	}

	// Old config should still be valid
	cfg := h.Get()
	if cfg.Logging.Level != "info" {
		t.Errorf("should keep old config, got Logging.Level = %s", cfg.Logging.Level)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var callCount int

	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		callCount++
		mu.Unlock()
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	// Write new config
	newContent := `
auth:
  token: "secret123"

logging:
  level: error
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	// Wait for file watcher to trigger
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && h.Get().Logging.Level != "error" {
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	if callCount == 0 {
		t.Error("file watcher did not trigger reload")
	}
	mu.Unlock()

	// Verify config was updated
	cfg := h.Get()
	if cfg.Logging.Level != "error" {
		t.Errorf("after file watch, Logging.Level = %s, want error", cfg.Logging.Level)
	}
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	// Start many readers
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := h.Get()
				if cfg == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}

	// Concurrent reloads
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}

	wg.Wait()
}

func TestReloadableFields(t *testing.T) {
	fields := config.ReloadableFields()
	if len(fields) == 0 {
		t.Error("ReloadableFields returned empty")
	}

	// Check expected fields
	expected := []string{"logging.level"}
	for _, e := range expected {
		found := false
		for _, f := range fields {
			if f == e {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s not in ReloadableFields", e)
		}
	}
}

func TestNonReloadableFields(t *testing.T) {
	fields := config.NonReloadableFields()
	if len(fields) == 0 {
		t.Error("NonReloadableFields returned empty")
	}

	// Check expected fields
	expected := []string{"server.host", "server.port", "auth.token", "catalog.path", "files"}
	for _, e := range expected {
		found := false
		for _, f := range fields {
			if f == e {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s not in NonReloadableFields", e)
		}
	}
}

// Helpers

func validConfig() string {
	return `
auth:
  token: "secret123"

catalog:
  path: "registry.json"
`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestHolder_OnReloadError(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var got error
	h.OnReloadError(func(err error) { got = err })

	if err := os.WriteFile(path, []byte("files:\n  backend: ftp\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("Reload should fail")
	}
	if got == nil {
		t.Error("OnReloadError callback was not called")
	}
}

func TestHolder_WatchFileCoalescesBursts(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()
	h.SetDebounce(300 * time.Millisecond)

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	for _, level := range []string{"debug", "warn", "error"} {
		content := validConfig() + "\nlogging:\n  level: " + level + "\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && h.Get().Logging.Level != "error" {
		time.Sleep(20 * time.Millisecond)
	}
	if got := h.Get().Logging.Level; got != "error" {
		t.Fatalf("Logging.Level = %s, want error", got)
	}
	if got := h.Generation(); got != 1 {
		t.Errorf("Generation = %d, want 1 reload for one burst", got)
	}
}

func TestHolder_StopIsIdempotent(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}
	h.WatchSignals()

	h.Stop()
	h.Stop()
}

func TestHolder_ReloadDoesNotLogToken(t *testing.T) {
	path := writeConfig(t, validConfig())
	var logs bytes.Buffer

	h, err := config.NewHolder(path, zerolog.New(&logs))
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	rotated := `
auth:
  token: "rotated-token-value"

catalog:
  path: "registry.json"

logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(rotated), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	out := logs.String()
	if strings.Contains(out, "rotated-token-value") || strings.Contains(out, "secret123") {
		t.Errorf("token value logged:\n%s", out)
	}
	if !strings.Contains(out, `"field":"auth.token"`) {
		t.Errorf("token change not reported:\n%s", out)
	}
	if h.Generation() != 1 {
		t.Errorf("Generation = %d, want 1", h.Generation())
	}
}

func TestDiff(t *testing.T) {
	prev := &config.Config{}
	prev.Logging.Level = "info"
	prev.Auth.Token = "a"
	prev.Server.Port = 8080

	next := *prev
	next.Logging.Level = "debug"
	next.Auth.Token = "b"

	got := config.Diff(prev, &next)
	want := []config.Change{
		{Field: "logging.level", Reloadable: true},
		{Field: "auth.token", Reloadable: false},
	}
	if len(got) != len(want) {
		t.Fatalf("Diff = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Diff[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if d := config.Diff(prev, prev); len(d) != 0 {
		t.Errorf("Diff of identical configs = %+v", d)
	}
}
