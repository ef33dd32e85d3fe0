package fetch

import (
	"encoding/json"
	"fmt"
)

// StatusError is returned whenever the server responds with a non-successful
// HTTP status. Message carries the error description parsed from the response
// body, see ParseErrorBody.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP response for %v (%v): %v", e.URL, e.Status, e.Message)
}

// ParseErrorBody extracts the error message from a response body. The
// distribution service reports errors as a JSON object {"msg": "..."}; any
// other body yields "Unknown error".
func ParseErrorBody(body []byte) string {
	var resp struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Msg == "" {
		return "Unknown error"
	}
	return resp.Msg
}
