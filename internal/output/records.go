package output

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"
)

// RecordWriter appends run records to a file as JSON lines. Writes are
// serialized within the process and guarded by an advisory file lock so
// several tickmeter processes can share one file.
type RecordWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	lock *flock.Flock
}

// OpenRecordWriter opens path for appending, creating it if needed.
func OpenRecordWriter(path string) (*RecordWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open records file: %w", err)
	}
	return &RecordWriter{
		path: path,
		file: f,
		lock: flock.New(path),
	}, nil
}

// Path returns the file the writer appends to.
func (w *RecordWriter) Path() string {
	return w.path
}

// Write appends rec as one JSON line.
func (w *RecordWriter) Write(rec map[string]any) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return os.ErrClosed
	}
	if err := w.lock.Lock(); err != nil {
		return fmt.Errorf("lock records file: %w", err)
	}
	defer w.lock.Unlock()

	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close releases the lock handle and closes the file.
func (w *RecordWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	lockErr := w.lock.Close()
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return err
	}
	return lockErr
}
