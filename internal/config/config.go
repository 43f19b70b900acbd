// Package config loads json5 configuration files with optional local
// overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalPath returns the override file that sits next to name:
// "dir/guerrillamail.json5" becomes "dir/guerrillamail.local.json5".
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// Read decodes name and then merges LocalPath(name) over it. Non-zero
// fields of the local file win. Either file may be missing, but if both
// are, Read returns an error matching os.ErrNotExist.
func Read[T any](name string) (T, error) {
	var out T
	found := false

	base, err := readFile[T](name)
	switch {
	case err == nil:
		out = base
		found = true
	case !os.IsNotExist(err):
		return out, err
	}

	localPath := LocalPath(name)
	local, err := readFile[T](localPath)
	switch {
	case err == nil:
		if err := mergo.Merge(&out, local, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("merge %s: %w", localPath, err)
		}
		slog.Debug("merged config with local overrides", "local", localPath)
		found = true
	case !os.IsNotExist(err):
		return out, err
	}

	if !found {
		return out, fmt.Errorf("read config %s: %w", name, os.ErrNotExist)
	}
	return out, nil
}

func readFile[T any](path string) (T, error) {
	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := json5.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}
