package sysfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeFS struct {
	files  map[string][]byte
	writes map[string][]byte
	err    error
}

func (f *fakeFS) ReadFile(path string) ([]byte, error) {
	if b, ok := f.files[path]; ok {
		return b, nil
	}
	return nil, fs.ErrNotExist
}

func (f *fakeFS) WriteFile(path string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.writes[path] = data
	return nil
}

func useFakeFS(t *testing.T, fake *fakeFS) {
	t.Helper()

	old := FS
	FS = fake
	t.Cleanup(func() { FS = old })
}

func TestWriteString_ExistingAttribute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsp")
	if err := os.WriteFile(path, []byte("OFF\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	if err := WriteString(path, "AUTO"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}

	got, err := ReadString(path)
	if err != nil {
		t.Fatalf("ReadString() error = %v", err)
	}
	if got != "AUTO" {
		t.Fatalf("ReadString() = %q, want AUTO", got)
	}
}

func TestWriteString_DoesNotCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")

	err := WriteString(path, "AUTO")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("WriteString() error = %v, want not-exist error", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("WriteString() created %s", path)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("WriteString() error = %q, want path in message", err.Error())
	}
}

func TestWriteString_FakeFS(t *testing.T) {
	fake := &fakeFS{writes: map[string][]byte{}}
	useFakeFS(t, fake)

	if err := WriteString("/sys/bus/i2c/devices/1-004a/tsp", "OFF"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	if got := string(fake.writes["/sys/bus/i2c/devices/1-004a/tsp"]); got != "OFF" {
		t.Fatalf("written = %q, want OFF", got)
	}
}

func TestWriteString_WriteError(t *testing.T) {
	fake := &fakeFS{writes: map[string][]byte{}, err: fs.ErrPermission}
	useFakeFS(t, fake)

	err := WriteString("/sys/x", "AUTO")
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("WriteString() error = %v, want permission error", err)
	}
}

func TestReadString_TrimsWhitespace(t *testing.T) {
	fake := &fakeFS{files: map[string][]byte{"/sys/x": []byte(" AUTO\n")}}
	useFakeFS(t, fake)

	got, err := ReadString("/sys/x")
	if err != nil {
		t.Fatalf("ReadString() error = %v", err)
	}
	if got != "AUTO" {
		t.Fatalf("ReadString() = %q, want AUTO", got)
	}

	if _, err := ReadString("/sys/missing"); err == nil {
		t.Fatal("ReadString() error = nil, want error")
	}
}
