package client

import "fmt"

// ServerError carries the error text the server placed in a modify envelope,
// e.g. "Failed to scrape website".
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "pagesmith: " + e.Message
}

// StatusError reports a non-200 response, such as 401 from a protected server.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("pagesmith: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("pagesmith: status %d: %s", e.StatusCode, e.Detail)
}
