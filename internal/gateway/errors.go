package gateway

import "fmt"

// TransportError indicates the request never produced a usable HTTP response
// (connection refused, timeout, context cancellation).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates the backend answered, but outside the contract:
// a status outside 2xx, or a body that is not valid JSON.
type ProtocolError struct {
	Op     string
	Status int
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: unexpected response (status=%d): %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: unexpected response (status=%d)", e.Op, e.Status)
}

// LogicalError indicates a well-formed 2xx response whose envelope carries an
// explicit failure flag. Message is the backend-supplied reason; Code is an
// optional machine-readable identifier.
type LogicalError struct {
	Op      string
	Message string
	Code    string
}

func (e *LogicalError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: backend rejected request [%s]: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: backend rejected request: %s", e.Op, e.Message)
}
