package gmail

import (
	"encoding/base64"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxcal/internal/scheduler"
)

// NormalizeMessage flattens a Gmail API message into the plaintext body and
// sender the pipeline consumes. A message without a From header gets the
// unknown-sender placeholder; a body that cannot be decoded degrades to the
// empty string rather than failing the message.
func NormalizeMessage(msg *gmail.Message) scheduler.NormalizedMessage {
	normalized := scheduler.NormalizedMessage{
		ID:     msg.Id,
		Sender: scheduler.UnknownSender,
	}

	if msg.Payload == nil {
		return normalized
	}

	for _, h := range msg.Payload.Headers {
		if h.Name == "From" {
			normalized.Sender = h.Value
			break
		}
	}

	normalized.Body = extractPlainText(msg.Payload)
	return normalized
}

// extractPlainText returns the first text/plain body found in the payload
// tree, preferring the top-level payload over nested parts.
func extractPlainText(payload *gmail.MessagePart) string {
	var data string
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		data = payload.Body.Data
	} else {
		walkParts(payload, func(part *gmail.MessagePart) {
			if data == "" && part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
				data = part.Body.Data
			}
		})
	}

	if data == "" {
		return ""
	}
	return decodeBody(data)
}

// decodeBody decodes base64url-encoded body data (Gmail API uses RFC 4648
// base64url encoding, usually without padding).
func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, p := range part.Parts {
		walkParts(p, fn)
	}
}
