package validate

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	// KindIO is a failed read or write of a blob. Aborts the whole operation.
	KindIO Kind = iota
	// KindFormat is a malformed file. Aborts the file.
	KindFormat
	// KindPolicy is caller misuse detected before anything is written.
	KindPolicy
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindFormat:
		return "format"
	case KindPolicy:
		return "policy"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error in %q: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
func (e *Error) Cause() error  { return e.Err }

func newError(kind Kind, path string, err error) error {
	if err == nil {
		return nil
	}
	var ve *Error
	if errors.As(err, &ve) {
		if ve.Path == "" && path != "" {
			return &Error{Kind: ve.Kind, Path: path, Err: ve.Err}
		}
		return err
	}
	return &Error{Kind: kind, Path: path, Err: err}
}

// IO classifies err as an IO failure unless it is already classified.
func IO(path string, err error) error { return newError(KindIO, path, err) }

func Format(path string, err error) error { return newError(KindFormat, path, err) }

func Policy(path string, err error) error { return newError(KindPolicy, path, err) }

func Policyf(format string, args ...interface{}) error {
	return &Error{Kind: KindPolicy, Err: errors.Errorf(format, args...)}
}

// KindOf reports the taxonomy kind of err.
func KindOf(err error) (Kind, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return 0, false
}
