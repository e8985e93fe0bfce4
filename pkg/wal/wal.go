// Package wal provides an append-only JSON journal. The in-memory storage
// adapter records committed mutations here so a restarted dev instance can
// replay them.
package wal

import (
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"sync"
)

const (
	// rw-r--r--
	fileModeReadOnly fs.FileMode = 0644
)

type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// New opens or creates a journal file. O_APPEND makes every write land at
// the end of the file regardless of interleaving.
func New(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, fileModeReadOnly)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Write appends one record and syncs it to disk.
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := json.NewEncoder(w.file).Encode(v); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close closes the journal file.
func (w *WAL) Close() error {
	return w.file.Close()
}

// ReadAll streams every record to callback without loading the whole file.
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
	return nil
}
