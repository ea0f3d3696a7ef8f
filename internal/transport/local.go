package transport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// openLocal opens name as a regular file. A missing file is reported with
// an error matching fs.ErrNotExist so the caller can fall back to URLs.
func openLocal(name string) (*Source, error) {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w %q: %w", ErrResourceOpen, name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w %q: %w", ErrResourceOpen, name, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w %q: is a directory", ErrResourceOpen, name)
	}

	return &Source{Body: f, File: f, Size: info.Size()}, nil
}
