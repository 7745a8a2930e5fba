// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import "fmt"

// maxErrorBody bounds how much of a response body an error message carries.
const maxErrorBody = 200

// FetchError reports a failed request to the citation service. StatusCode is
// zero when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	if body == "" {
		return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: HTTP %d: %s", e.URL, e.StatusCode, body)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
