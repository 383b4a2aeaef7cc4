package ocr

import (
	"errors"
	"fmt"
)

// Kind classifies why a recognition failed
type Kind int

const (
	// KindNetwork is a transport failure: refused, timed out, DNS, broken body
	KindNetwork Kind = iota + 1
	// KindProtocol is a response that is not the expected envelope
	KindProtocol
	// KindRejected is an envelope with success set to false
	KindRejected
)

// Sentinels for errors.Is checks against *Error
var (
	ErrNetwork  = errors.New("ocr network failure")
	ErrProtocol = errors.New("ocr protocol error")
	ErrRejected = errors.New("ocr rejected")
)

// DefaultRejectedMessage is used when the service rejects without a message
const DefaultRejectedMessage = "识别失败，请重试"

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindRejected:
		return "rejected"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindProtocol:
		return ErrProtocol
	case KindRejected:
		return ErrRejected
	default:
		return nil
	}
}

// Error is returned by Recognizer implementations for every failed call
type Error struct {
	Kind Kind
	// Message is the server supplied text for KindRejected
	Message string
	// Err is the underlying cause, if any
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindRejected:
		return fmt.Sprintf("%s: %s", e.Kind.sentinel(), e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

func protocolError(format string, args ...any) *Error {
	return &Error{Kind: KindProtocol, Err: fmt.Errorf(format, args...)}
}

func rejectedError(message string) *Error {
	if message == "" {
		message = DefaultRejectedMessage
	}
	return &Error{Kind: KindRejected, Message: message}
}
