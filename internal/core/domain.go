// Package core holds the household finance domain types and the money,
// date and period helpers shared by the import and report pipelines.
package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  CategoryType = "Receita"
	Expense CategoryType = "Despesa"
)

const (
	Pending Status = "Pendente"
	Settled Status = "Efetivado"
)

// Sharing literals are stored as-is; display names for the two sharers come
// from configuration.
const (
	SharingA    Sharing = "100%-A"
	SharingB    Sharing = "100%-B"
	SharingHalf Sharing = "50/50"
	SharingAll  Sharing = "All"
)

const (
	Inflow  Nature = "Entrada"
	Outflow Nature = "Saida"
)

const (
	BetweenAccounts TransferKind = "Entre Contas"
	ToInvestment    TransferKind = "Para Investimento"
	FromInvestment  TransferKind = "De Investimento"
	CardPayment     TransferKind = "Pagamento Fatura"
)

const DateLayout = "2006-01-02"

const maxDescription = 200

type (
	CategoryType string
	Status       string
	Sharing      string
	Nature       string
	TransferKind string

	Date struct {
		time.Time
	}

	// Money holds an amount in integer cents. Movement amounts are signed.
	Money struct {
		Cents int64
	}

	Category struct {
		ID          int64
		Description string
		Type        CategoryType
	}

	Account struct {
		ID          int64
		Description string
	}

	Card struct {
		ID          int64
		Description string
		AccountID   int64
		AccountName string
		DueDay      int
		Limit       Money
	}

	Ticker struct {
		ID          int64
		Description string
		Class       string
		Kind        string
	}

	Currency struct {
		ID          int64
		Code        string
		Description string
	}

	Operation struct {
		ID          int64
		Description string
		Nature      Nature
	}

	Movement struct {
		ID             int64
		Date           Date
		SettlementDate Date // zero when not settled yet
		Description    string
		CategoryID     int64
		AccountID      int64
		CardID         int64 // 0 means no card
		Amount         Money
		Status         Status
		Sharing        Sharing
	}

	// MovementView is a movement joined with its reference names.
	MovementView struct {
		Movement
		CategoryName string
		CategoryType CategoryType
		AccountName  string
		CardName     string
	}

	InvestmentOperation struct {
		ID             int64
		Date           Date
		DueDate        Date
		TickerID       int64
		OperationID    int64
		CurrencyID     int64
		AccountID      int64 // 0 means none
		Quantity       decimal.Decimal
		UnitPrice      Money
		Gross          Money
		Costs          Money
		Fees           Money
		WithholdingTax Money
		NegotiatedRate *decimal.Decimal
		IndexName      string
		Note           string
	}

	InvestmentView struct {
		InvestmentOperation
		TickerName    string
		TickerClass   string
		OperationName string
		Nature        Nature
		CurrencyCode  string
		AccountName   string
	}

	Transfer struct {
		ID             int64
		Date           Date
		SettlementDate Date
		Description    string
		FromAccountID  int64
		ToAccountID    int64
		CardID         int64
		InvestmentID   int64
		Amount         Money
		Status         Status
		Kind           TransferKind
		Sharing        Sharing
	}

	TransferView struct {
		Transfer
		FromAccountName string
		ToAccountName   string
		CardName        string
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidSharing     = errors.New("invalid sharing")
	ErrInvalidCategory    = errors.New("invalid category type")
	ErrInvalidNature      = errors.New("invalid operation nature")
	ErrInvalidKind        = errors.New("invalid transfer kind")
	ErrInvalidDueDay      = errors.New("due day must be between 1 and 31")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrMissingReference   = errors.New("missing reference")
	ErrInvalidCurrency    = errors.New("currency code must have 3 letters")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock and zone of t, keeping its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or "" when empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t CategoryType) Valid() bool {
	return t == Income || t == Expense
}

func (s Status) Valid() bool {
	return s == Pending || s == Settled
}

func (s Sharing) Valid() bool {
	switch s {
	case SharingA, SharingB, SharingHalf:
		return true
	}
	return false
}

func (n Nature) Valid() bool {
	return n == Inflow || n == Outflow
}

func (k TransferKind) Valid() bool {
	switch k {
	case BetweenAccounts, ToInvestment, FromInvestment, CardPayment:
		return true
	}
	return false
}

// Statuses, Sharings and TransferKinds list the accepted literals in display order.
var (
	Statuses      = []Status{Pending, Settled}
	Sharings      = []Sharing{SharingA, SharingB, SharingHalf}
	CategoryTypes = []CategoryType{Income, Expense}
	Natures       = []Nature{Inflow, Outflow}
	TransferKinds = []TransferKind{BetweenAccounts, ToInvestment, FromInvestment, CardPayment}
)

// NormalizeSign keeps the magnitude of m and derives the sign from the
// category type: expenses are never positive, income is never negative.
func NormalizeSign(t CategoryType, m Money) Money {
	c := m.Cents
	if c < 0 {
		c = -c
	}
	if t == Expense {
		c = -c
	}
	return Money{Cents: c}
}

func validateDescription(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyDescription
	}
	if len(s) > maxDescription {
		return ErrDescriptionTooLong
	}
	return nil
}

func (c Category) Validate() error {
	if err := validateDescription(c.Description); err != nil {
		return err
	}
	if !c.Type.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

func (a Account) Validate() error {
	return validateDescription(a.Description)
}

func (c Card) Validate() error {
	if err := validateDescription(c.Description); err != nil {
		return err
	}
	if c.AccountID <= 0 {
		return errors.New("card requires an account")
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return ErrInvalidDueDay
	}
	if c.Limit.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Ticker) Validate() error {
	return validateDescription(t.Description)
}

func (c Currency) Validate() error {
	if len(strings.TrimSpace(c.Code)) != 3 {
		return ErrInvalidCurrency
	}
	return validateDescription(c.Description)
}

// Normalize upper-cases the currency code.
func (c Currency) Normalize() Currency {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	return c
}

func (o Operation) Validate() error {
	if err := validateDescription(o.Description); err != nil {
		return err
	}
	if !o.Nature.Valid() {
		return ErrInvalidNature
	}
	return nil
}

// ApplyDefaults fills the settlement date of a settled movement that has none.
func (m *Movement) ApplyDefaults() {
	if m.Status == Settled && m.SettlementDate.IsZero() {
		m.SettlementDate = m.Date
	}
}

func (m Movement) Validate() error {
	if err := m.Date.Validate(); err != nil {
		return err
	}
	if err := validateDescription(m.Description); err != nil {
		return err
	}
	if m.CategoryID <= 0 || m.AccountID <= 0 {
		return ErrMissingReference
	}
	if !m.Status.Valid() {
		return ErrInvalidStatus
	}
	if !m.Sharing.Valid() {
		return ErrInvalidSharing
	}
	if !m.SettlementDate.IsZero() && m.SettlementDate.Before(m.Date.Time) {
		return errors.New("settlement date before movement date")
	}
	return nil
}

// NetAmount returns the signed cash effect of the operation for the given nature.
func (o InvestmentOperation) NetAmount(n Nature) Money {
	if n == Outflow {
		return Money{Cents: -(abs(o.Gross.Cents) + abs(o.Costs.Cents) + abs(o.Fees.Cents))}
	}
	return Money{Cents: abs(o.Gross.Cents) - abs(o.Costs.Cents) - abs(o.Fees.Cents) - abs(o.WithholdingTax.Cents)}
}

func (o InvestmentOperation) Validate() error {
	if err := o.Date.Validate(); err != nil {
		return err
	}
	if o.TickerID <= 0 || o.OperationID <= 0 || o.CurrencyID <= 0 {
		return ErrMissingReference
	}
	if o.Quantity.IsNegative() {
		return ErrInvalidQuantity
	}
	if o.Gross.Cents < 0 || o.Costs.Cents < 0 || o.Fees.Cents < 0 || o.WithholdingTax.Cents < 0 {
		return ErrInvalidAmount
	}
	if !o.DueDate.IsZero() && o.DueDate.Before(o.Date.Time) {
		return errors.New("due date before investment date")
	}
	return nil
}

func (t *Transfer) ApplyDefaults() {
	if t.Status == Settled && t.SettlementDate.IsZero() {
		t.SettlementDate = t.Date
	}
}

func (t Transfer) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.FromAccountID <= 0 {
		return ErrMissingReference
	}
	if t.ToAccountID != 0 && t.ToAccountID == t.FromAccountID {
		return errors.New("source and destination accounts must differ")
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if !t.Sharing.Valid() {
		return ErrInvalidSharing
	}
	switch t.Kind {
	case BetweenAccounts:
		if t.ToAccountID == 0 {
			return errors.New("transfer between accounts requires a destination")
		}
	case CardPayment:
		if t.CardID == 0 {
			return errors.New("card payment requires a card")
		}
	}
	return nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
