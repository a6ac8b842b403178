package main

import (
	"errors"
	"fmt"
)

// ErrNoMetadata means no usable embedded capture time could be read. It is
// always recovered by falling back to the filesystem time.
var ErrNoMetadata = errors.New("no embedded capture time")

// IOError wraps a failed filesystem operation on a single file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func ioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

const (
	ErrCodeInvalidConfig = "config_invalid"
	ErrCodeBadRoot       = "bad_root"
	ErrCodeFailedRoot    = "failed_root_unusable"
	ErrCodeIndex         = "index_unavailable"
)

// ConfigError aborts the whole run.
type ConfigError struct {
	Code string
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %q: %v", e.Code, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %q", e.Code, e.Path)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConfigCode extracts the code of a *ConfigError, or "" for anything else.
func ConfigCode(err error) string {
	var e *ConfigError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
