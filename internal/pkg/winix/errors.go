package winix

import (
	"fmt"
	"strings"
)

// HTTPError is returned when the Winix cloud answers outside the 2xx range.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("winix api %s %s: %s", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("winix api %s %s: %s: %s", e.Method, e.URL, e.Status, body)
}
