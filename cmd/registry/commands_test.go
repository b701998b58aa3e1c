package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRegistry(t *testing.T, items string) string {
	t.Helper()
	dir := t.TempDir()

	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(os.WriteFile(filepath.Join(dir, "registry.json"), []byte(`{"name":"acme","items":[`+items+`]}`), 0o644))
	must(os.WriteFile(filepath.Join(dir, "a.tsx"), []byte("A"), 0o644))
	must(os.WriteFile(filepath.Join(dir, "registry.yaml"), []byte(
		"auth:\n  token: t\ncatalog:\n  path: "+filepath.Join(dir, "registry.json")+"\nfiles:\n  root: "+dir+"\n"), 0o644))
	return filepath.Join(dir, "registry.yaml")
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := writeRegistry(t, `{"name":"button","type":"registry:ui","files":[{"path":"a.tsx"}]}`)

	out, err := runCommand(t, "--config", path, "validate")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "button") || !strings.Contains(out, "Registry is valid.") {
		t.Errorf("output = %s", out)
	}
}

func TestValidateCommand_Failures(t *testing.T) {
	path := writeRegistry(t, `
		{"name":"button","type":"registry:ui","files":[{"path":"a.tsx"}]},
		{"name":"empty","type":"registry:ui","files":[]},
		{"name":"broken","type":"registry:ui","files":[{"path":"missing.tsx"}]}`)

	out, err := runCommand(t, "--config", path, "validate")
	if err == nil {
		t.Fatalf("expected failure, output: %s", out)
	}
	if !strings.Contains(err.Error(), "2 of 3") {
		t.Errorf("err = %v", err)
	}
}

func TestListCommand(t *testing.T) {
	path := writeRegistry(t, `
		{"name":"button","type":"registry:ui","files":[{"path":"a.tsx"}]},
		{"name":"use-toast","type":"registry:hook","files":[{"path":"a.tsx"}]}`)

	out, err := runCommand(t, "--config", path, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "button") || !strings.Contains(out, "use-toast") || !strings.Contains(out, "registry:hook") {
		t.Errorf("output = %s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "registry dev") {
		t.Errorf("output = %s", out)
	}
}
