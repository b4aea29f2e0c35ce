package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// UpstreamError describes a non-2xx response from a dependency.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// CheckResponse returns an UpstreamError when the response is not 2xx. It
// reads and closes the body on error, truncating it for log safety.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
}

// DecodeJSON decodes a 2xx response body into v and closes it. Non-2xx
// responses produce an UpstreamError.
func DecodeJSON(resp *http.Response, v any) error {
	if err := CheckResponse(resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
