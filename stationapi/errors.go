package stationapi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed request for operator-facing diagnosis.
type ErrorKind int

const (
	KindStatus ErrorKind = iota
	KindNotFound
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindNetwork:
		return "network"
	default:
		return "status"
	}
}

// FetchError is returned for non-2xx responses, transport failures and
// undecodable bodies.
type FetchError struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "stationapi: %s: ", e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "Server returned %s", statusText(e.StatusCode, e.Status))
		if e.Body != "" {
			b.WriteString(" - ")
			b.WriteString(e.Body)
		}
		if e.Err != nil {
			b.WriteString(": ")
			b.WriteString(e.Err.Error())
		}
		return b.String()
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Purpose: Render the status line shown while stale data stays visible.
// Key aspects: Distinguishes not-found, network and other failures.
// Upstream: console frame builder.
// Downstream: None.
func (e *FetchError) UserMessage() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindNotFound:
		return "API endpoint not found (404). Please check if the server is running."
	case KindNetwork:
		return "Network error. Please check if the backend server is running."
	default:
		detail := e.Body
		if e.StatusCode != 0 {
			detail = "Server returned " + statusText(e.StatusCode, e.Status)
			if e.Body != "" {
				detail += " - " + e.Body
			}
		}
		if e.Err != nil {
			if detail != "" {
				detail += ": "
			}
			detail += e.Err.Error()
		}
		return "Failed to fetch data: " + detail
	}
}

// UserMessage renders any error for the status line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.UserMessage()
	}
	return "Failed to fetch data: " + err.Error()
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindNotFound
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindNetwork
}

func statusText(code int, status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return fmt.Sprintf("%d", code)
	}
	// http.Response.Status already carries the code ("404 Not Found").
	return status
}
