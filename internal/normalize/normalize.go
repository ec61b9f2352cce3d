// Package normalize turns raw oracle text into usable values: audit payloads,
// simulation markup and chat replies.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/grantaxiom/internal/validate"
)

// ErrMalformedResponse is returned when an audit response is not JSON
var ErrMalformedResponse = errors.New("malformed oracle response")

// EmptyChatReply is shown when the assistant returns no text
const EmptyChatReply = "I couldn't generate a response."

const fence = "```"

// StripFences removes a wrapping ```json or ``` fence and trims the result.
// Fence markers inside the body are left alone. Text without a wrapping
// fence is returned trimmed.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, fence) {
		return s
	}
	s = strings.TrimPrefix(s, fence)
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}

// ParseAuditReport decodes a raw audit response into a payload for the
// schema validator. Non-JSON text yields ErrMalformedResponse; JSON of the
// wrong shape yields validate.ErrInvalidSchema.
func ParseAuditReport(raw string) (*validate.Payload, error) {
	body := StripFences(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if !json.Valid([]byte(body)) {
		return nil, fmt.Errorf("%w: response is not valid JSON", ErrMalformedResponse)
	}

	if !strings.HasPrefix(body, "{") {
		return nil, fmt.Errorf("%w: top-level value is not an object", validate.ErrInvalidSchema)
	}

	var payload validate.Payload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: field %s has type %s, want %s",
				validate.ErrInvalidSchema, typeErr.Field, typeErr.Value, typeErr.Type)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &payload, nil
}

// ExtractCode returns the interior of the first ```html fence, else of the
// first ``` fence, else the whole text. The result is trimmed; the markup
// itself is not checked.
func ExtractCode(raw string) string {
	code := raw
	if _, after, ok := strings.Cut(code, fence+"html"); ok {
		code, _, _ = strings.Cut(after, fence)
	} else if _, after, ok := strings.Cut(code, fence); ok {
		code, _, _ = strings.Cut(after, fence)
	}
	return strings.TrimSpace(code)
}

// NormalizeChat passes assistant text through, replacing an empty reply
// with EmptyChatReply
func NormalizeChat(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return EmptyChatReply
	}
	return raw
}
