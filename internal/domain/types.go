package domain

import "time"

// ImagePathSeparator joins stored image locators in invoice_header.image_paths.
// Locators must never contain it.
const ImagePathSeparator = ","

// ExtractedInvoice is the normalized model output. Every field is optional;
// a nil pointer means the model omitted the field or returned null.
type ExtractedInvoice struct {
	Supplier    *string             `json:"supplier"`
	InvoiceDate *string             `json:"invoice_date"` // YYYY-MM-DD, not calendar-validated
	TotalAmount *float64            `json:"total_amount"`
	Tax         *float64            `json:"tax"`
	LineItems   []ExtractedLineItem `json:"line_items"`
}

type ExtractedLineItem struct {
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Amount      *float64 `json:"amount"`
}

// Invoice is a persisted invoice_header row. LineItems is only populated
// when the invoice is loaded by id.
type Invoice struct {
	ID          int64       `json:"id"`
	Supplier    *string     `json:"supplier"`
	InvoiceDate *string     `json:"invoice_date"`
	TotalAmount *float64    `json:"total_amount"`
	Tax         *float64    `json:"tax"`
	ImagePaths  []string    `json:"image_paths"`
	CreatedAt   time.Time   `json:"created_at"`
	LineItems   []*LineItem `json:"line_items,omitempty"`
}

type LineItem struct {
	ID          int64    `json:"id"`
	HeaderID    int64    `json:"header_id"`
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Amount      *float64 `json:"amount"`
}
