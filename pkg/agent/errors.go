package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusError is returned for any non-2xx response from the agent service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	detail := e.Detail()
	if detail == "" {
		return fmt.Sprintf("agent service returned status %d", e.Code)
	}
	return fmt.Sprintf("agent service returned status %d: %s", e.Code, detail)
}

// Detail returns the "detail" field of a JSON error body, or the trimmed body.
func (e *StatusError) Detail() string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			return s
		}
		return string(body.Detail)
	}
	return strings.TrimSpace(e.Body)
}

// IsUnauthorized reports whether err is a 401 from the agent service.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == 401
}
