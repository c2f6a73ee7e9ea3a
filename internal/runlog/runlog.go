// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runlog writes per-run log files mirrored to the console. Each
// run gets one timestamped file under the logs directory; the file handle
// is scoped to the run and released by Close.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// timestampFormat names run log files like run_20260831_154502.log.
const timestampFormat = "20060102_150405"

// now is overridable so tests get deterministic file names.
var now = time.Now

// RunLog tees log output to a per-run file and a console writer.
type RunLog struct {
	file    *os.File
	console io.Writer
}

// Open creates the logs directory if needed and opens a fresh timestamped
// log file for this run. Console output is mirrored to console (typically
// os.Stdout).
func Open(logsDir string, console io.Writer) (*RunLog, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs directory: %w", err)
	}

	path := filepath.Join(logsDir, "run_"+now().Format(timestampFormat)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating run log %s: %w", path, err)
	}

	return &RunLog{file: f, console: console}, nil
}

// Writer returns the sink callers log to: every write lands in the run
// file and on the console.
func (l *RunLog) Writer() io.Writer {
	return io.MultiWriter(l.file, l.console)
}

// Path returns the run log file path.
func (l *RunLog) Path() string {
	return l.file.Name()
}

// Close flushes and releases the run log file handle.
func (l *RunLog) Close() error {
	return l.file.Close()
}
