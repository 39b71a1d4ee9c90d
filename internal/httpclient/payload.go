package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var errBodyConflict = errors.New("httpclient: body and body file are mutually exclusive")

// payload is the request body sent by every run. Inline bytes are shared;
// a file is re-opened and re-measured per request, so each run sends the
// file as it is at that moment.
type payload struct {
	inline []byte
	path   string
}

func newPayload(body, file string) (payload, error) {
	file = strings.TrimSpace(file)
	switch {
	case body != "" && file != "":
		return payload{}, errBodyConflict
	case file != "":
		info, err := os.Stat(file)
		if err != nil {
			return payload{}, fmt.Errorf("httpclient: body file: %w", err)
		}
		if info.IsDir() {
			return payload{}, fmt.Errorf("httpclient: body file %s is a directory", file)
		}
		return payload{path: file}, nil
	default:
		return payload{inline: []byte(body)}, nil
	}
}

// open returns a reader over the body and its length in bytes.
func (p payload) open() (io.ReadCloser, int64, error) {
	if p.path == "" {
		return io.NopCloser(bytes.NewReader(p.inline)), int64(len(p.inline)), nil
	}
	f, err := os.Open(p.path)
	if err != nil {
		return nil, 0, fmt.Errorf("httpclient: open body: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("httpclient: stat body: %w", err)
	}
	return f, info.Size(), nil
}

func (p payload) empty() bool {
	return p.path == "" && len(p.inline) == 0
}
