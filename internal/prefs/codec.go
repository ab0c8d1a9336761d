// Package prefs reads and writes the browser's property-list preference
// file as a generic key/value mapping.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"howett.net/plist"

	"github.com/lakshaymaurya-felt/oriondoctor/internal/core"
)

// Codec converts a preference file to and from a mapping.
type Codec interface {
	Read(ctx context.Context, path string) (map[string]any, error)
	Write(ctx context.Context, path string, values map[string]any) error
}

// New returns the codec named by converter: "plutil" shells out to
// /usr/bin/plutil, anything else decodes in-process.
func New(converter string) Codec {
	if converter == "plutil" {
		return NewPlutil(30 * time.Second)
	}
	return Native{}
}

// ─── Native ──────────────────────────────────────────────────────────────────

// Native decodes XML, binary and OpenStep plists in-process and always
// writes the binary format.
type Native struct{}

// Read implements Codec. A missing file yields an error wrapping
// fs.ErrNotExist.
func (Native) Read(_ context.Context, path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	values := map[string]any{}
	if _, err := plist.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return values, nil
}

// Write implements Codec. The file is replaced atomically and keeps the
// permissions of the file it replaces.
func (Native) Write(_ context.Context, path string, values map[string]any) error {
	data, err := plist.Marshal(values, plist.BinaryFormat)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ─── plutil ──────────────────────────────────────────────────────────────────

// Plutil converts through the system plutil tool via JSON. Values JSON
// cannot carry (dates, raw data) make the conversion fail.
type Plutil struct {
	run core.CommandFunc
}

// NewPlutil returns a Plutil codec whose invocations time out after timeout.
func NewPlutil(timeout time.Duration) *Plutil {
	return &Plutil{run: core.Command(timeout)}
}

// Read implements Codec.
func (p *Plutil) Read(ctx context.Context, path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	out, err := p.run(ctx, nil, "plutil", "-convert", "json", "-o", "-", path)
	if err != nil {
		return nil, err
	}
	values := map[string]any{}
	if err := json.Unmarshal(out, &values); err != nil {
		return nil, fmt.Errorf("failed to decode plutil output for %s: %w", path, err)
	}
	return values, nil
}

// Write implements Codec.
func (p *Plutil) Write(ctx context.Context, path string, values map[string]any) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	_, err = p.run(ctx, data, "plutil", "-convert", "binary1", "-o", path, "-")
	return err
}
