package series

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Format is an on-disk encoding of a series.
type Format int

const (
	// CSV is the canonical tabular format written by Persist.
	CSV Format = iota
	// Msgpack is the binary snapshot format written by EncodeMsgpack.
	Msgpack
)

// FormatOf picks the format from the file extension. Anything other than
// .msgpack is treated as CSV.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".msgpack") {
		return Msgpack
	}
	return CSV
}

// Decode reads a series in the given format.
func Decode(r io.Reader, f Format) (*Series, error) {
	if f == Msgpack {
		return DecodeMsgpack(r)
	}
	return Load(r)
}

// Encode writes the series in the given format.
func (s *Series) Encode(w io.Writer, f Format) error {
	if f == Msgpack {
		return s.EncodeMsgpack(w)
	}
	return s.Persist(w)
}

// LoadFile reads the series stored at path. A missing file is an empty
// series, which is how a store starts out.
func LoadFile(path string) (*Series, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Decode(bufio.NewReader(f), FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}

// WriteFile stores the series at path, atomically.
func WriteFile(path string, s *Series) error {
	return AtomicWrite(path, func(w io.Writer) error {
		return s.Encode(w, FormatOf(path))
	})
}

// AtomicWrite calls fn with a writer to a temporary file in the directory of
// path and renames the file over path once fn succeeded, so an interrupted
// write never leaves a truncated file behind.
func AtomicWrite(path string, fn func(w io.Writer) error) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = fn(w); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
