package exchange

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindRejected
	KindOrderNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRejected:
		return "rejected"
	case KindOrderNotFound:
		return "order_not_found"
	}
	return "unknown"
}

// Error - единая форма ошибки биржи для ядра.
type Error struct {
	Kind Kind
	Op   string
	Code int64
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code=%d): %s", e.Op, e.Kind, e.Code, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsOrderNotFound(err error) bool { return KindOf(err) == KindOrderNotFound }
func IsTransient(err error) bool     { return KindOf(err) == KindTransient }
func IsRejected(err error) bool      { return KindOf(err) == KindRejected }
