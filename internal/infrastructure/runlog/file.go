package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

// FileName derives the record's file name from its start timestamp.
func FileName(record domain.RunRecord) string {
	ts := record.Timestamp.UTC().Format(time.RFC3339Nano)
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return "run-" + ts + ".json"
}

// Encode renders a record the way it is persisted.
func Encode(record domain.RunRecord) ([]byte, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode run record: %w", err)
	}
	return append(data, '\n'), nil
}

// FileLogger writes one JSON document per run into a log directory.
type FileLogger struct {
	fs billy.Filesystem
}

var _ ports.RunLogger = (*FileLogger)(nil)

// NewFileLogger writes into the root of fs.
func NewFileLogger(fs billy.Filesystem) *FileLogger {
	return &FileLogger{fs: fs}
}

// OpenFileLogger roots the logger at dir on the local disk.
func OpenFileLogger(dir string) *FileLogger {
	return NewFileLogger(osfs.New(dir))
}

// Log writes the record and returns the file's location.
func (l *FileLogger) Log(_ context.Context, record domain.RunRecord) (string, error) {
	data, err := Encode(record)
	if err != nil {
		return "", err
	}
	name := FileName(record)
	if err := util.WriteFile(l.fs, "/"+name, data, 0o644); err != nil {
		return "", fmt.Errorf("write run record %s: %w", name, err)
	}
	return l.fs.Join(l.fs.Root(), name), nil
}
