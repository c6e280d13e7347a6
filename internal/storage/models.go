package storage

import "database/sql"

type Account struct {
	ID          int64
	Description string
}

type Category struct {
	ID          int64
	Description string
	Type        string
}

type Card struct {
	ID          int64
	Description string
	AccountID   int64
	AccountName string
	DueDay      int64
	LimitCents  int64
}

type Ticker struct {
	ID          int64
	Description string
	Class       string
	Kind        string
}

type Currency struct {
	ID          int64
	Code        string
	Description string
}

type Operation struct {
	ID          int64
	Description string
	Nature      string
}

type MovementRow struct {
	ID             int64
	MovementDate   string
	SettlementDate sql.NullString
	Description    string
	CategoryID     int64
	AccountID      int64
	CardID         sql.NullInt64
	AmountCents    int64
	Status         string
	Sharing        string
	CategoryName   string
	CategoryType   string
	AccountName    string
	CardName       sql.NullString
}

type MovementParams struct {
	MovementDate   string
	SettlementDate sql.NullString
	Description    string
	CategoryID     int64
	AccountID      int64
	CardID         sql.NullInt64
	AmountCents    int64
	Status         string
	Sharing        string
}

type InvestmentRow struct {
	ID               int64
	InvestmentDate   string
	DueDate          sql.NullString
	TickerID         int64
	OperationID      int64
	CurrencyID       int64
	AccountID        sql.NullInt64
	Quantity         string
	UnitPriceCents   int64
	GrossCents       int64
	CostsCents       int64
	FeesCents        int64
	WithholdingCents int64
	NegotiatedRate   sql.NullString
	IndexName        string
	Note             string
	TickerName       string
	TickerClass      string
	OperationName    string
	Nature           string
	CurrencyCode     string
	AccountName      sql.NullString
}

type InvestmentParams struct {
	InvestmentDate   string
	DueDate          sql.NullString
	TickerID         int64
	OperationID      int64
	CurrencyID       int64
	AccountID        sql.NullInt64
	Quantity         string
	UnitPriceCents   int64
	GrossCents       int64
	CostsCents       int64
	FeesCents        int64
	WithholdingCents int64
	NegotiatedRate   sql.NullString
	IndexName        string
	Note             string
}

type TransferRow struct {
	ID              int64
	TransferDate    string
	SettlementDate  sql.NullString
	Description     string
	FromAccountID   int64
	ToAccountID     sql.NullInt64
	CardID          sql.NullInt64
	AmountCents     int64
	Status          string
	Kind            string
	InvestmentID    sql.NullInt64
	Sharing         string
	FromAccountName string
	ToAccountName   sql.NullString
	CardName        sql.NullString
}

type TransferParams struct {
	TransferDate   string
	SettlementDate sql.NullString
	Description    string
	FromAccountID  int64
	ToAccountID    sql.NullInt64
	CardID         sql.NullInt64
	AmountCents    int64
	Status         string
	Kind           string
	InvestmentID   sql.NullInt64
	Sharing        string
}
