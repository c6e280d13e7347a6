package importer

import (
	"regexp"
	"strings"
	"time"

	"financas/internal/core"
)

// CategoryRef is what the pipeline needs to know about a category.
type CategoryRef struct {
	ID   int64
	Type core.CategoryType
}

// ReferenceLookup resolves reference names by exact match.
type ReferenceLookup interface {
	Category(name string) (CategoryRef, bool)
	Account(name string) (int64, bool)
	Card(name string) (int64, bool)
}

// References is a map-backed ReferenceLookup built once per request.
type References struct {
	categories map[string]CategoryRef
	accounts   map[string]int64
	cards      map[string]int64
}

// NewReferences indexes the reference data by description.
func NewReferences(categories []core.Category, accounts []core.Account, cards []core.Card) *References {
	r := &References{
		categories: make(map[string]CategoryRef, len(categories)),
		accounts:   make(map[string]int64, len(accounts)),
		cards:      make(map[string]int64, len(cards)),
	}
	for _, c := range categories {
		r.categories[c.Description] = CategoryRef{ID: c.ID, Type: c.Type}
	}
	for _, a := range accounts {
		r.accounts[a.Description] = a.ID
	}
	for _, c := range cards {
		r.cards[c.Description] = c.ID
	}
	return r
}

// Category resolves a category description to its ID and type.
func (r *References) Category(name string) (CategoryRef, bool) {
	c, ok := r.categories[name]
	return c, ok
}

// Account resolves an account description to its ID.
func (r *References) Account(name string) (int64, bool) {
	id, ok := r.accounts[name]
	return id, ok
}

// Card resolves a card description to its ID.
func (r *References) Card(name string) (int64, bool) {
	id, ok := r.cards[name]
	return id, ok
}

// ImportRow is one candidate movement awaiting review. Errors is empty for
// rows that passed every rule.
type ImportRow struct {
	Line           int
	Date           string
	RawDate        string
	SettlementDate string
	Description    string
	CategoryName   string
	CategoryID     int64
	AccountName    string
	AccountID      int64
	CardName       string
	CardID         int64
	RawAmount      string
	Amount         string
	Status         string
	Sharing        string
	Errors         []RowError
}

// Valid reports whether the row has no validation errors.
func (r ImportRow) Valid() bool { return len(r.Errors) == 0 }

func (r *ImportRow) addError(field, msg string) {
	r.Errors = append(r.Errors, RowError{Field: field, Message: msg})
}

var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

var genericLayouts = []string{
	core.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
}

// Validate checks every row against every rule. Rows are never dropped: the
// result has exactly one ImportRow per table row, in order.
func Validate(table *RawTable, refs ReferenceLookup) []ImportRow {
	out := make([]ImportRow, 0, len(table.Rows))
	for i, rec := range table.Rows {
		out = append(out, validateRecord(i+2, rec, table.DecimalComma, refs))
	}
	return out
}

// Revalidate re-runs validation on a row edited during review. Edited rows
// carry ISO dates and dot-decimal amounts.
func Revalidate(row ImportRow, refs ReferenceLookup) ImportRow {
	rec := Record{
		ColDate:           {Text: row.Date},
		ColSettlementDate: {Text: row.SettlementDate},
		ColDescription:    {Text: row.Description},
		ColCategory:       {Text: row.CategoryName},
		ColAccount:        {Text: row.AccountName},
		ColCard:           {Text: row.CardName},
		ColAmount:         {Text: row.Amount},
		ColStatus:         {Text: row.Status},
		ColSharing:        {Text: row.Sharing},
	}
	return validateRecord(row.Line, rec, false, refs)
}

func validateRecord(line int, rec Record, decimalComma bool, refs ReferenceLookup) ImportRow {
	row := ImportRow{
		Line:         line,
		RawDate:      rec[ColDate].Text,
		Description:  rec[ColDescription].Text,
		CategoryName: rec[ColCategory].Text,
		AccountName:  rec[ColAccount].Text,
		CardName:     rec[ColCard].Text,
		RawAmount:    rec[ColAmount].Text,
	}

	if d, ok := ParseDate(rec[ColDate]); ok {
		row.Date = d.Format(core.DateLayout)
	} else {
		row.addError(ColDate, "invalid date")
	}

	if c := rec[ColSettlementDate]; c.Text != "" || c.Time != nil {
		if d, ok := ParseDate(c); ok {
			row.SettlementDate = d.Format(core.DateLayout)
		} else {
			row.addError(ColSettlementDate, "invalid settlement date")
		}
	}

	if strings.TrimSpace(row.Description) == "" {
		row.addError(ColDescription, "description is required")
	}

	if ref, ok := refs.Category(row.CategoryName); ok {
		row.CategoryID = ref.ID
	} else {
		row.addError(ColCategory, "unknown category "+quote(row.CategoryName))
	}

	if id, ok := refs.Account(row.AccountName); ok {
		row.AccountID = id
	} else {
		row.addError(ColAccount, "unknown account "+quote(row.AccountName))
	}

	if noCard(row.CardName) {
		row.CardName = ""
	} else if id, ok := refs.Card(row.CardName); ok {
		row.CardID = id
	} else {
		row.addError(ColCard, "unknown card "+quote(row.CardName))
	}

	row.Amount = NormalizeAmount(row.RawAmount, decimalComma)
	if _, err := core.ParseAmount(row.Amount); err != nil {
		row.addError(ColAmount, "invalid amount "+quote(row.RawAmount))
	}

	if s, ok := ParseStatus(rec[ColStatus].Text); ok {
		row.Status = string(s)
	} else {
		row.Status = rec[ColStatus].Text
		row.addError(ColStatus, "status must be Pendente or Efetivado")
	}

	row.Sharing = strings.TrimSpace(rec[ColSharing].Text)
	if !core.Sharing(row.Sharing).Valid() {
		row.addError(ColSharing, "sharing must be 100%-A, 100%-B or 50/50")
	}
	return row
}

// ParseDate formats native values directly, then tries day-first layouts,
// and only when none match falls back to generic layouts.
func ParseDate(c Cell) (time.Time, bool) {
	if c.Time != nil {
		t := *c.Time
		return core.DateOf(t).Time, true
	}
	s := strings.TrimSpace(c.Text)
	if s == "" {
		return time.Time{}, false
	}
	for _, layouts := range [][]string{dayFirstLayouts, genericLayouts} {
		for _, l := range layouts {
			if t, err := time.Parse(l, s); err == nil {
				return core.DateOf(t).Time, true
			}
		}
	}
	return time.Time{}, false
}

// thousandsDots matches integers grouped with "." every three digits.
var thousandsDots = regexp.MustCompile(`^[-+]?\d{1,3}(\.\d{3})+$`)

// NormalizeAmount converts an amount to a dot-decimal string following the
// table's decimal style. Currency symbols and spaces are removed. In
// comma-decimal tables a "." is only dropped as a thousands separator when
// a decimal comma is present or the dots group digits by three; "12.50"
// keeps its dot.
func NormalizeAmount(s string, decimalComma bool) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if decimalComma {
		switch {
		case strings.Contains(s, ","):
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		case thousandsDots.MatchString(s):
			s = strings.ReplaceAll(s, ".", "")
		}
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	return s
}

// ParseStatus accepts the stored literals and their English names.
func ParseStatus(s string) (core.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pendente", "pending":
		return core.Pending, true
	case "efetivado", "settled":
		return core.Settled, true
	}
	return "", false
}

func noCard(name string) bool {
	n := strings.TrimSpace(name)
	return n == "" || strings.EqualFold(n, "nan")
}

func quote(s string) string {
	return `"` + s + `"`
}
