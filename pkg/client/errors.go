package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by Send when no API key has been set.
var ErrNotConfigured = errors.New("API key not configured")

// ErrRequestInProgress is returned by Send while another send is in flight.
var ErrRequestInProgress = errors.New("request already in progress")

// apiErrorBody is the structured error object the API embeds in non-200
// response bodies.
type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// errorMessage builds the message surfaced for a failed response. A
// structured error body takes precedence over the status-code mapping.
func errorMessage(status int, body []byte) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		if parsed.Error.Type != "" {
			return fmt.Sprintf("%s: %s", parsed.Error.Type, parsed.Error.Message)
		}
		return parsed.Error.Message
	}
	return statusMessage(status)
}

// statusMessage maps an HTTP status to a stable human-readable message.
func statusMessage(status int) string {
	switch status {
	case 400:
		return "Bad request - check your message format"
	case 401:
		return "Invalid API key - please check your API key in settings"
	case 403:
		return "Access forbidden - your API key may not have permission"
	case 404:
		return "API endpoint not found"
	case 429:
		return "Rate limited - too many requests. Max retries exceeded."
	case 500:
		return "Anthropic server error - try again later"
	case 529:
		return "Anthropic API overloaded - try again later"
	default:
		return fmt.Sprintf("HTTP error %d", status)
	}
}
