package log

import (
	"github.com/jrick/logrotate/rotator"
	"github.com/pkg/errors"
	"os"
	"path/filepath"
	"sync"
)

var (
	logRotator *rotator.Rotator
	rotatorMtx sync.Mutex
)

// logWriter tees log output to stdout and, once initialized, the log
// rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	rotatorMtx.Lock()
	r := logRotator
	rotatorMtx.Unlock()
	if r != nil {
		r.Write(p)
	}
	return len(p), nil
}

// InitLogRotator starts writing logs to logFile, rolling it over once it
// exceeds maxKB kilobytes.
func InitLogRotator(logFile string, maxKB int64) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
		return errors.Wrap(err, "error creating log directory")
	}

	r, err := rotator.New(logFile, maxKB, false, 3)
	if err != nil {
		return errors.Wrap(err, "error creating log rotator")
	}

	rotatorMtx.Lock()
	logRotator = r
	rotatorMtx.Unlock()
	return nil
}

func CloseLogRotator() error {
	rotatorMtx.Lock()
	defer rotatorMtx.Unlock()
	if logRotator == nil {
		return nil
	}
	err := logRotator.Close()
	logRotator = nil
	return err
}
