package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindFetch          ErrorKind = "fetch"
	KindParse          ErrorKind = "parse"
	KindExtractionSkip ErrorKind = "extraction_skip"
	KindPersistence    ErrorKind = "persistence"
)

var (
	ErrCircuitOpen       = errors.New("circuit breaker open")
	ErrRetriesExhausted  = errors.New("retries exhausted")
	ErrNoTitle           = errors.New("no title")
	ErrRefreshInProgress = errors.New("refresh already in progress")
)

// Error carries the failure kind plus enough context to log it.
type Error struct {
	Kind      ErrorKind
	Op        string
	URL       string
	Status    int
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func FetchErr(url string, status int, retryable bool, err error) *Error {
	return &Error{Kind: KindFetch, Op: "fetch", URL: url, Status: status, Retryable: retryable, Err: err}
}

func ParseErr(url string, err error) *Error {
	return &Error{Kind: KindParse, Op: "parse", URL: url, Err: err}
}

func SkipErr(reason error) *Error {
	return &Error{Kind: KindExtractionSkip, Op: "extract", Err: reason}
}

func PersistErr(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}
