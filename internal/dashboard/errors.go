package dashboard

import "fmt"

// TransportError is a failed request or a non-success HTTP status.
type TransportError struct {
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("Server error (%d): %s", e.Status, e.Body)
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// ApplicationError carries the message of an {"error": ...} envelope.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string { return e.Message }

// DecodeError means the body was not the JSON shape the view expects.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }
