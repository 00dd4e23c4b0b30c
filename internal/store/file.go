// Package store reads and writes the planner's JSON documents. Every write
// replaces the whole document; a missing file reads as empty state.
package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// readDocument unmarshals path into v. It reports false, with no error, when
// the file does not exist.
func readDocument(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := codec.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// writeDocument marshals v as indented JSON and replaces path atomically.
func writeDocument(path string, v any) error {
	data, err := codec.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return WriteFile(path, append(data, '\n'))
}

// WriteFile replaces path with data via a temp file in the same directory,
// so readers never observe a partial document. The result has 0600 perms.
func WriteFile(path string, data []byte) error {
	if path == "" {
		return errors.New("document path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".planner-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
