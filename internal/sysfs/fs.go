// Package sysfs reads and writes single-value kernel attribute files.
package sysfs

import (
	"fmt"
	"os"
	"strings"
)

// FileSystem abstracts the file operations used against sysfs attributes.
// Tests can replace `FS` with a fake implementation.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	// WriteFile replaces the contents of an existing file without creating it.
	WriteFile(path string, data []byte) error
}

type defaultFS struct{}

func (defaultFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (defaultFS) WriteFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FS is the package-level FileSystem used for attribute access. Tests may replace it.
var FS FileSystem = defaultFS{}

// WriteString writes value to the attribute at path.
func WriteString(path, value string) error {
	if err := FS.WriteFile(path, []byte(value)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadString returns the attribute at path with surrounding whitespace removed.
func ReadString(path string) (string, error) {
	data, err := FS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
