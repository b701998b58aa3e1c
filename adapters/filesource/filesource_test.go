package filesource

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
)

func TestLocal_ReadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "registry", "ui"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "registry", "ui", "button.tsx"), []byte("export const Button = 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewLocal(dir)
	data, err := src.ReadFile(context.Background(), "registry/ui/button.tsx")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "export const Button = 1" {
		t.Errorf("content = %q", data)
	}
	if src.Root() != dir {
		t.Errorf("Root = %q, want %q", src.Root(), dir)
	}
}

func TestLocal_ReadFileMissing(t *testing.T) {
	src := NewLocal(t.TempDir())

	_, err := src.ReadFile(context.Background(), "nope.tsx")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestLocal_RejectsEscapes(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("s"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewLocal(root)
	for _, p := range []string{"../secret.txt", "/etc/passwd", "", "a/../../secret.txt"} {
		if _, err := src.ReadFile(context.Background(), p); !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("ReadFile(%q) err = %v, want ErrOutsideRoot", p, err)
		}
	}
}

func TestLocal_RejectsSymlinkOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	if err := os.MkdirAll(filepath.Join(root, "ui"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("s"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "ui", "button.tsx"), []byte("B"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(parent, "secret.txt"), filepath.Join(root, "leak.tsx")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(parent, filepath.Join(root, "up")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "ui", "button.tsx"), filepath.Join(root, "alias.tsx")); err != nil {
		t.Fatal(err)
	}

	src := NewLocal(root)
	for _, p := range []string{"leak.tsx", "up/secret.txt"} {
		if _, err := src.ReadFile(context.Background(), p); !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("ReadFile(%q) err = %v, want ErrOutsideRoot", p, err)
		}
	}

	data, err := src.ReadFile(context.Background(), "alias.tsx")
	if err != nil {
		t.Fatalf("link inside root: %v", err)
	}
	if string(data) != "B" {
		t.Errorf("content = %q", data)
	}
}

func TestLocal_CanceledContext(t *testing.T) {
	mem := afero.NewMemMapFs()
	afero.WriteFile(mem, "a.tsx", []byte("A"), 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLocalFs(mem).ReadFile(ctx, "a.tsx"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLocal_MemFs(t *testing.T) {
	mem := afero.NewMemMapFs()
	afero.WriteFile(mem, filepath.FromSlash("hooks/use-x.tsx"), []byte("hook"), 0o644)

	data, err := NewLocalFs(mem).ReadFile(context.Background(), "hooks/use-x.tsx")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hook" {
		t.Errorf("content = %q", data)
	}
}

func TestNewObject_Validation(t *testing.T) {
	if _, err := NewObject(ObjectConfig{Bucket: "b"}); err == nil {
		t.Error("expected error without endpoint")
	}
	if _, err := NewObject(ObjectConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Error("expected error without bucket")
	}

	o, err := NewObject(ObjectConfig{
		Endpoint:        "https://s3.example.com",
		Bucket:          "registry",
		Prefix:          "v1",
		AccessKeyID:     "ak",
		SecretAccessKey: "sk",
	})
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	if o.bucket != "registry" || o.prefix != "v1" {
		t.Errorf("object = %+v", o)
	}
}

func TestObject_RejectsEscapes(t *testing.T) {
	o, err := NewObject(ObjectConfig{Endpoint: "localhost:9000", Bucket: "registry", AccessKeyID: "ak", SecretAccessKey: "sk"})
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	if _, err := o.ReadFile(context.Background(), "../x"); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("err = %v, want ErrOutsideRoot", err)
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, path, want string
	}{
		{"", "a.tsx", "a.tsx"},
		{"v1", "registry/ui/a.tsx", "v1/registry/ui/a.tsx"},
		{"v1/", "./a.tsx", "v1/a.tsx"},
	}
	for _, tt := range tests {
		if got := objectKey(tt.prefix, tt.path); got != tt.want {
			t.Errorf("objectKey(%q, %q) = %q, want %q", tt.prefix, tt.path, got, tt.want)
		}
	}
}

func TestClassifyObjectError(t *testing.T) {
	err := classifyObjectError("k", minio.ErrorResponse{Code: "NoSuchKey"})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("NoSuchKey -> %v, want fs.ErrNotExist", err)
	}

	err = classifyObjectError("k", minio.ErrorResponse{Code: "AccessDenied"})
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("AccessDenied -> %v, want fs.ErrPermission", err)
	}

	boom := errors.New("boom")
	if err := classifyObjectError("k", boom); !errors.Is(err, boom) {
		t.Errorf("other error should be wrapped, got %v", err)
	}
}
