package vision

import (
	"context"
	"strings"
)

// ExtractionPrompt is the shared instruction sent with every extraction
// request. The field list is the contract the normalizer parses.
const ExtractionPrompt = `Extract the following information from this invoice image. If several images are attached they are pages of the same invoice.
Return a valid JSON object with these fields:
- supplier (string)
- invoice_date (YYYY-MM-DD)
- total_amount (number)
- tax (number or null)
- line_items (array of objects with description, quantity, unit_price, amount)

Only include the JSON, no other text.`

// Image is one decoded-and-verified invoice image ready to be attached to a
// model request. MimeType is always one the model APIs accept.
type Image struct {
	Data     []byte
	MimeType string
}

// Analyzer sends ExtractionPrompt together with all images as one request and
// returns the model's text reply unmodified.
type Analyzer interface {
	Analyze(ctx context.Context, images []Image) (string, error)
}

// Redact wraps err so that its message no longer contains any of secrets.
// The original error stays reachable through errors.Is / errors.As.
func Redact(err error, secrets ...string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	changed := false
	for _, s := range secrets {
		if s != "" && strings.Contains(msg, s) {
			msg = strings.ReplaceAll(msg, s, "[REDACTED]")
			changed = true
		}
	}
	if !changed {
		return err
	}
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
