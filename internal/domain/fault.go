package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrNoResults          = errors.New("upstream returned no results")
	ErrLocationNotFound   = errors.New("location not found")
	ErrNoCoordinates      = errors.New("location has no coordinates")
	ErrInvalidCoordinates = errors.New("location coordinates are invalid")
)

type FaultKind string

const (
	FaultConfiguration  FaultKind = "configuration"
	FaultUpstream       FaultKind = "upstream"
	FaultTimeout        FaultKind = "timeout"
	FaultNetwork        FaultKind = "network"
	FaultUnexpected     FaultKind = "unexpected"
	FaultNotImplemented FaultKind = "not_implemented"
)

// Fault is the closed set of failures an upstream client can report.
type Fault struct {
	Service string // amadeus | sherpa
	Op      string
	Kind    FaultKind
	Status  int    // upstream HTTP status, 0 when none was received
	Code    string // provider error code, if any
	Detail  string
	Err     error
}

func (f *Fault) Error() string {
	msg := fmt.Sprintf("%s %s: %s fault", f.Service, f.Op, f.Kind)
	if f.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", f.Status)
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Fault) Unwrap() error { return f.Err }

func (f *Fault) RateLimited() bool { return f.Status == http.StatusTooManyRequests }

// FaultKindOf returns the kind of the first Fault in err's chain.
func FaultKindOf(err error) (FaultKind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}

func IsFault(err error, kind FaultKind) bool {
	k, ok := FaultKindOf(err)
	return ok && k == kind
}

// TransportFaultKind classifies an error returned before any HTTP response arrived.
func TransportFaultKind(err error) FaultKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FaultTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FaultTimeout
	}
	return FaultNetwork
}
