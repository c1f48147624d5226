package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a gateway failure
type Kind int

const (
	KindUnauthenticated Kind = iota + 1
	KindAuthRejected
	KindTransport
	KindServer
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindAuthRejected:
		return "auth rejected"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server error"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches exactly one of these.
var (
	ErrUnauthenticated = errors.New("not logged in")
	ErrAuthRejected    = errors.New("session rejected by server")
	ErrTransport       = errors.New("could not reach server")
	ErrServer          = errors.New("server error")
	ErrValidation      = errors.New("request rejected")
)

// Error is returned by every Backend method
type Error struct {
	Kind   Kind
	Op     string
	Status int    // HTTP status, 0 when no response was received
	Detail string // server-supplied "detail", if any
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	switch {
	case e.Detail != "":
		b.WriteString(e.Detail)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.sentinel().Error())
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindUnauthenticated:
		return ErrUnauthenticated
	case KindAuthRejected:
		return ErrAuthRejected
	case KindTransport:
		return ErrTransport
	case KindValidation:
		return ErrValidation
	default:
		return ErrServer
	}
}

// Message is the text a shell shows for this error
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.sentinel().Error()
}

// IsAuthRejected reports whether err is an auth rejection. Callers that see
// one must not surface it; the auth guard has already reacted.
func IsAuthRejected(err error) bool {
	return errors.Is(err, ErrAuthRejected)
}

// UserMessage extracts a displayable message from any error
func UserMessage(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Message()
	}
	return err.Error()
}

// parseDetail pulls the "detail" field out of an error body. It is either a
// string or a list of validation entries with a "msg" field.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var entries []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.Msg == "" {
				continue
			}
			if len(entry.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", entry.Loc[len(entry.Loc)-1], entry.Msg))
			} else {
				msgs = append(msgs, entry.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}
