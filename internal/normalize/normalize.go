package normalize

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vbonduro/invoicescan/internal/domain"
)

//go:embed invoice.schema.json
var schemaJSON string

const schemaURL = "https://invoicescan.local/invoice.schema.json"

var invoiceSchema = jsonschema.MustCompileString(schemaURL, schemaJSON)

// openingFence matches a leading markdown fence with an optional language tag
// such as ```json, ```JSON or ```js.
var openingFence = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*")

const closingFence = "```"

// StripFences removes one surrounding markdown code fence from raw model output.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	text = openingFence.ReplaceAllString(text, "")
	text = strings.TrimSuffix(text, closingFence)
	return strings.TrimSpace(text)
}

// Normalize converts the model's raw reply into an ExtractedInvoice. Text that
// is not JSON, a top level that is not an object, or a line_items value that is
// not a list of objects is a domain.ErrInvalidJSON error whose detail carries
// the text. Modeled fields holding a value of the wrong type become nil.
func Normalize(raw string) (*domain.ExtractedInvoice, error) {
	text := StripFences(raw)

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, invalid(text, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, invalid(text, fmt.Errorf("top-level value is %s, not an object", jsonKind(doc)))
	}
	if err := invoiceSchema.Validate(obj); err != nil {
		return nil, invalid(text, err)
	}

	return convert(obj), nil
}

func invalid(text string, err error) error {
	return domain.NewErrorf(domain.ErrInvalidJSON, "normalize", err, "%q", text)
}

func convert(obj map[string]any) *domain.ExtractedInvoice {
	inv := &domain.ExtractedInvoice{
		Supplier:    optString(obj["supplier"]),
		InvoiceDate: optString(obj["invoice_date"]),
		TotalAmount: optNumber(obj["total_amount"]),
		Tax:         optNumber(obj["tax"]),
		LineItems:   []domain.ExtractedLineItem{},
	}

	items, _ := obj["line_items"].([]any)
	for _, raw := range items {
		fields := raw.(map[string]any)
		inv.LineItems = append(inv.LineItems, domain.ExtractedLineItem{
			Description: optString(fields["description"]),
			Quantity:    optNumber(fields["quantity"]),
			UnitPrice:   optNumber(fields["unit_price"]),
			Amount:      optNumber(fields["amount"]),
		})
	}

	return inv
}

func optString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

var numberNoise = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "")

// optNumber accepts JSON numbers and numeric strings such as "1,204.50" or "$12".
// Anything else, including blank or non-numeric strings, is nil.
func optNumber(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(numberNoise.Replace(strings.TrimSpace(n)), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
