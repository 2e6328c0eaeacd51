// Package wal is a minimal JSON-line write-ahead log: one JSON document per
// entry, appended and fsynced on every write, replayed sequentially on
// startup.
package wal

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
)

type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// Open opens or creates the log file at path in append mode.
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Write appends one entry and flushes it to disk before returning. An entry
// that Write reported as durable will be seen by ReadAll after a crash.
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := json.NewEncoder(w.file).Encode(v); err != nil {
		return err
	}
	return w.file.Sync()
}

// ReadAll replays every entry in append order, invoking callback with the
// raw JSON of each. Replay stops at the first callback error.
func (w *WAL) ReadAll(callback func(raw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}

	// Leave the descriptor positioned for appends again.
	_, err := w.file.Seek(0, io.SeekEnd)
	return err
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
