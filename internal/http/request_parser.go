// This file holds the reusable pieces for reading form and query values:
// typed field readers, report filters and method guards.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/report"
)

// FieldError is a form value that could not be read. Handlers answer it
// with 422.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error { return e.Err }

var errRequired = errors.New("required")

// formReader reads typed values and keeps the first failure.
type formReader struct {
	get func(string) string
	err error
}

func newFormReader(values url.Values) *formReader {
	return &formReader{get: values.Get}
}

func (f *formReader) fail(field string, err error) {
	if f.err == nil {
		f.err = &FieldError{Field: field, Err: err}
	}
}

// Err returns the first field failure.
func (f *formReader) Err() error { return f.err }

func (f *formReader) text(key string) string {
	return sanitizeInput(f.get(key))
}

func (f *formReader) requiredDate(key string) core.Date {
	d := f.date(key)
	if d.IsZero() && f.err == nil {
		f.fail(key, errRequired)
	}
	return d
}

// date returns the zero date for an empty value.
func (f *formReader) date(key string) core.Date {
	v := strings.TrimSpace(f.get(key))
	if v == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(v)
	if err != nil {
		f.fail(key, fmt.Errorf("invalid date %q", v))
	}
	return d
}

// id returns 0 for an empty value.
func (f *formReader) id(key string) int64 {
	v := strings.TrimSpace(f.get(key))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		f.fail(key, fmt.Errorf("invalid id %q", v))
		return 0
	}
	return n
}

func (f *formReader) integer(key string) int {
	v := strings.TrimSpace(f.get(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f.fail(key, fmt.Errorf("invalid number %q", v))
	}
	return n
}

func (f *formReader) requiredMoney(key string) core.Money {
	if strings.TrimSpace(f.get(key)) == "" {
		f.fail(key, errRequired)
		return core.Money{}
	}
	return f.money(key)
}

// money returns zero for an empty value.
func (f *formReader) money(key string) core.Money {
	v := strings.TrimSpace(f.get(key))
	if v == "" {
		return core.Money{}
	}
	m, err := ParseMoneyInput(v)
	if err != nil {
		f.fail(key, fmt.Errorf("invalid amount %q", v))
	}
	return m
}

func (f *formReader) decimal(key string) decimal.Decimal {
	d := f.optionalDecimal(key)
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func (f *formReader) optionalDecimal(key string) *decimal.Decimal {
	v := strings.TrimSpace(f.get(key))
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(normalizeDecimalInput(v))
	if err != nil {
		f.fail(key, fmt.Errorf("invalid number %q", v))
		return nil
	}
	return &d
}

// ParseMoneyInput accepts "1234.56", "1234,56", "1.234,56" and an optional
// "R$" prefix.
func ParseMoneyInput(s string) (core.Money, error) {
	return core.ParseAmount(normalizeDecimalInput(s))
}

func normalizeDecimalInput(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return s
}

// DateRange is an inclusive list filter.
type DateRange struct {
	From core.Date
	To   core.Date
}

// ParseDateRange reads from/to query values. Missing or invalid bounds fall
// back to the month containing now; reversed bounds are swapped.
func ParseDateRange(query url.Values, now time.Time) DateRange {
	start := core.MonthStart(now)
	r := DateRange{
		From: core.Date{Time: start},
		To:   core.Date{Time: core.AddMonths(start, 1).AddDate(0, 0, -1)},
	}
	if d, err := core.ParseDate(query.Get("from")); err == nil {
		r.From = d
	}
	if d, err := core.ParseDate(query.Get("to")); err == nil {
		r.To = d
	}
	if r.To.Before(r.From.Time) {
		r.From, r.To = r.To, r.From
	}
	return r
}

// ParseReportFilter overlays start, end and sharing query values on def.
func ParseReportFilter(query url.Values, def report.Filter) (report.Filter, error) {
	f := def
	if v := strings.TrimSpace(query.Get("start")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, &FieldError{Field: "start", Err: fmt.Errorf("invalid date %q", v)}
		}
		f.Start = d.Time
	}
	if v := strings.TrimSpace(query.Get("end")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, &FieldError{Field: "end", Err: fmt.Errorf("invalid date %q", v)}
		}
		f.End = d.Time
	}
	if v := strings.TrimSpace(query.Get("sharing")); v != "" {
		s := core.Sharing(v)
		if s != core.SharingAll && !s.Valid() {
			return f, &FieldError{Field: "sharing", Err: core.ErrInvalidSharing}
		}
		f.Sharing = s
	}
	if f.End.Before(f.Start) {
		return f, &FieldError{Field: "end", Err: errors.New("end before start")}
	}
	return f, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func (p *RequestBodyParser) reader() *formReader {
	return &formReader{get: p.Get}
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Formato de requisição inválido")
	}
	return nil
}
