package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

func mapSlice[S, T any](in []S, fn func(S) T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

func toAccount(a Account) core.Account {
	return core.Account{ID: a.ID, Description: a.Description}
}

func toCategory(c Category) core.Category {
	return core.Category{ID: c.ID, Description: c.Description, Type: core.CategoryType(c.Type)}
}

func toCard(c Card) core.Card {
	return core.Card{
		ID:          c.ID,
		Description: c.Description,
		AccountID:   c.AccountID,
		AccountName: c.AccountName,
		DueDay:      int(c.DueDay),
		Limit:       core.Money{Cents: c.LimitCents},
	}
}

func toTicker(t Ticker) core.Ticker {
	return core.Ticker{ID: t.ID, Description: t.Description, Class: t.Class, Kind: t.Kind}
}

func toCurrency(c Currency) core.Currency {
	return core.Currency{ID: c.ID, Code: c.Code, Description: c.Description}
}

func toOperation(o Operation) core.Operation {
	return core.Operation{ID: o.ID, Description: o.Description, Nature: core.Nature(o.Nature)}
}

func nullDate(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

// parseStored parses a date written by this package; stored dates are ISO.
func parseStored(s string) (core.Date, error) {
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("stored date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

func parseNullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return parseStored(s.String)
}

func movementParams(m core.Movement) MovementParams {
	return MovementParams{
		MovementDate:   m.Date.String(),
		SettlementDate: nullDate(m.SettlementDate),
		Description:    m.Description,
		CategoryID:     m.CategoryID,
		AccountID:      m.AccountID,
		CardID:         nullID(m.CardID),
		AmountCents:    m.Amount.Cents,
		Status:         string(m.Status),
		Sharing:        string(m.Sharing),
	}
}

func toMovementView(r MovementRow) (core.MovementView, error) {
	date, err := parseStored(r.MovementDate)
	if err != nil {
		return core.MovementView{}, err
	}
	settled, err := parseNullDate(r.SettlementDate)
	if err != nil {
		return core.MovementView{}, err
	}
	return core.MovementView{
		Movement: core.Movement{
			ID:             r.ID,
			Date:           date,
			SettlementDate: settled,
			Description:    r.Description,
			CategoryID:     r.CategoryID,
			AccountID:      r.AccountID,
			CardID:         r.CardID.Int64,
			Amount:         core.Money{Cents: r.AmountCents},
			Status:         core.Status(r.Status),
			Sharing:        core.Sharing(r.Sharing),
		},
		CategoryName: r.CategoryName,
		CategoryType: core.CategoryType(r.CategoryType),
		AccountName:  r.AccountName,
		CardName:     r.CardName.String,
	}, nil
}

func toMovementViews(rows []MovementRow) ([]core.MovementView, error) {
	out := make([]core.MovementView, 0, len(rows))
	for _, r := range rows {
		v, err := toMovementView(r)
		if err != nil {
			return nil, fmt.Errorf("movement %d: %w", r.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func investmentParams(o core.InvestmentOperation) InvestmentParams {
	p := InvestmentParams{
		InvestmentDate:   o.Date.String(),
		DueDate:          nullDate(o.DueDate),
		TickerID:         o.TickerID,
		OperationID:      o.OperationID,
		CurrencyID:       o.CurrencyID,
		AccountID:        nullID(o.AccountID),
		Quantity:         o.Quantity.String(),
		UnitPriceCents:   o.UnitPrice.Cents,
		GrossCents:       o.Gross.Cents,
		CostsCents:       o.Costs.Cents,
		FeesCents:        o.Fees.Cents,
		WithholdingCents: o.WithholdingTax.Cents,
		IndexName:        o.IndexName,
		Note:             o.Note,
	}
	if o.NegotiatedRate != nil {
		p.NegotiatedRate = sql.NullString{String: o.NegotiatedRate.String(), Valid: true}
	}
	return p
}

func toInvestmentView(r InvestmentRow) (core.InvestmentView, error) {
	date, err := parseStored(r.InvestmentDate)
	if err != nil {
		return core.InvestmentView{}, err
	}
	due, err := parseNullDate(r.DueDate)
	if err != nil {
		return core.InvestmentView{}, err
	}
	qty, err := decimal.NewFromString(r.Quantity)
	if err != nil {
		return core.InvestmentView{}, fmt.Errorf("stored quantity %q: %w", r.Quantity, err)
	}
	var rate *decimal.Decimal
	if r.NegotiatedRate.Valid && r.NegotiatedRate.String != "" {
		d, err := decimal.NewFromString(r.NegotiatedRate.String)
		if err != nil {
			return core.InvestmentView{}, fmt.Errorf("stored rate %q: %w", r.NegotiatedRate.String, err)
		}
		rate = &d
	}
	return core.InvestmentView{
		InvestmentOperation: core.InvestmentOperation{
			ID:             r.ID,
			Date:           date,
			DueDate:        due,
			TickerID:       r.TickerID,
			OperationID:    r.OperationID,
			CurrencyID:     r.CurrencyID,
			AccountID:      r.AccountID.Int64,
			Quantity:       qty,
			UnitPrice:      core.Money{Cents: r.UnitPriceCents},
			Gross:          core.Money{Cents: r.GrossCents},
			Costs:          core.Money{Cents: r.CostsCents},
			Fees:           core.Money{Cents: r.FeesCents},
			WithholdingTax: core.Money{Cents: r.WithholdingCents},
			NegotiatedRate: rate,
			IndexName:      r.IndexName,
			Note:           r.Note,
		},
		TickerName:    r.TickerName,
		TickerClass:   r.TickerClass,
		OperationName: r.OperationName,
		Nature:        core.Nature(r.Nature),
		CurrencyCode:  r.CurrencyCode,
		AccountName:   r.AccountName.String,
	}, nil
}

func transferParams(t core.Transfer) TransferParams {
	return TransferParams{
		TransferDate:   t.Date.String(),
		SettlementDate: nullDate(t.SettlementDate),
		Description:    t.Description,
		FromAccountID:  t.FromAccountID,
		ToAccountID:    nullID(t.ToAccountID),
		CardID:         nullID(t.CardID),
		AmountCents:    t.Amount.Cents,
		Status:         string(t.Status),
		Kind:           string(t.Kind),
		InvestmentID:   nullID(t.InvestmentID),
		Sharing:        string(t.Sharing),
	}
}

func toTransferView(r TransferRow) (core.TransferView, error) {
	date, err := parseStored(r.TransferDate)
	if err != nil {
		return core.TransferView{}, err
	}
	settled, err := parseNullDate(r.SettlementDate)
	if err != nil {
		return core.TransferView{}, err
	}
	return core.TransferView{
		Transfer: core.Transfer{
			ID:             r.ID,
			Date:           date,
			SettlementDate: settled,
			Description:    r.Description,
			FromAccountID:  r.FromAccountID,
			ToAccountID:    r.ToAccountID.Int64,
			CardID:         r.CardID.Int64,
			InvestmentID:   r.InvestmentID.Int64,
			Amount:         core.Money{Cents: r.AmountCents},
			Status:         core.Status(r.Status),
			Kind:           core.TransferKind(r.Kind),
			Sharing:        core.Sharing(r.Sharing),
		},
		FromAccountName: r.FromAccountName,
		ToAccountName:   r.ToAccountName.String,
		CardName:        r.CardName.String,
	}, nil
}
