package http

import (
	"net/http"
	"strconv"

	"financas/internal/core"
	applog "financas/internal/log"
)

type investmentForm struct {
	Action         string
	Date           string
	DueDate        string
	TickerID       string
	OperationID    string
	CurrencyID     string
	AccountID      string
	Quantity       string
	UnitPrice      string
	Gross          string
	Costs          string
	Fees           string
	WithholdingTax string
	NegotiatedRate string
	IndexName      string
	Note           string
}

type investmentsPage struct {
	Investments []core.InvestmentView
	Form        investmentForm
	Editing     bool
	Tickers     []core.Ticker
	Operations  []core.Operation
	Currencies  []core.Currency
	Accounts    []core.Account
}

func readInvestment(f *formReader, id int64) core.InvestmentOperation {
	return core.InvestmentOperation{
		ID:             id,
		Date:           f.requiredDate("date"),
		DueDate:        f.date("due_date"),
		TickerID:       f.id("ticker_id"),
		OperationID:    f.id("operation_id"),
		CurrencyID:     f.id("currency_id"),
		AccountID:      f.id("account_id"),
		Quantity:       f.decimal("quantity"),
		UnitPrice:      f.money("unit_price"),
		Gross:          f.requiredMoney("gross"),
		Costs:          f.money("costs"),
		Fees:           f.money("fees"),
		WithholdingTax: f.money("withholding_tax"),
		NegotiatedRate: f.optionalDecimal("negotiated_rate"),
		IndexName:      f.text("index_name"),
		Note:           f.text("note"),
	}
}

func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderInvestments(w, r)
	case http.MethodPost:
		s.saveInvestment(w, r, 0)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleInvestmentUpdate(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	s.saveInvestment(w, r, id)
}

func (s *Server) handleInvestmentDelete(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}
	id, err := pathID(r, "id")
	if err == nil {
		err = s.svc.Ledger.DeleteInvestment(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	s.done(w, r, "/investments", "Operação excluída", nil)
}

func (s *Server) saveInvestment(w http.ResponseWriter, r *http.Request, id int64) {
	op := applog.OpCreate
	if id != 0 {
		op = applog.OpUpdate
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	f := newFormReader(r.PostForm)
	o := readInvestment(f, id)
	err := f.Err()
	if err == nil {
		err = invalid(o.Validate())
	}
	if err == nil {
		if id == 0 {
			_, err = s.svc.Ledger.CreateInvestment(r.Context(), o)
		} else {
			err = s.svc.Ledger.UpdateInvestment(r.Context(), o)
		}
	}
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.done(w, r, "/investments", "Operação salva", func(b *HTMXResponseBuilder) { b.TriggerFormReset() })
}

func (s *Server) renderInvestments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := s.repo.ListInvestments(ctx)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	data := investmentsPage{
		Investments: items,
		Form:        investmentForm{Action: "/investments", Date: s.now().Format(core.DateLayout)},
	}

	if v := r.URL.Query().Get("edit"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.fail(w, r, applog.OpRead, &FieldError{Field: "edit", Err: err})
			return
		}
		o, err := s.repo.GetInvestment(ctx, id)
		if err != nil {
			s.fail(w, r, applog.OpRead, err)
			return
		}
		data.Editing = true
		data.Form = investmentForm{
			Action:         "/investments/" + idString(o.ID),
			Date:           o.Date.String(),
			DueDate:        o.DueDate.String(),
			TickerID:       idString(o.TickerID),
			OperationID:    idString(o.OperationID),
			CurrencyID:     idString(o.CurrencyID),
			AccountID:      idString(o.AccountID),
			Quantity:       o.Quantity.String(),
			UnitPrice:      o.UnitPrice.Input(),
			Gross:          o.Gross.Input(),
			Costs:          o.Costs.Input(),
			Fees:           o.Fees.Input(),
			WithholdingTax: o.WithholdingTax.Input(),
			IndexName:      o.IndexName,
			Note:           o.Note,
		}
		if o.NegotiatedRate != nil {
			data.Form.NegotiatedRate = o.NegotiatedRate.String()
		}
	}

	if data.Tickers, err = s.repo.ListTickers(ctx); err == nil {
		if data.Operations, err = s.repo.ListOperations(ctx); err == nil {
			if data.Currencies, err = s.repo.ListCurrencies(ctx); err == nil {
				data.Accounts, err = s.repo.ListAccounts(ctx)
			}
		}
	}
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, http.StatusOK, "investments.html", page{Title: "Investimentos", Active: "investments", Data: data})
}

// handlePositions shows per-ticker positions derived from the operation ledger.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	summary, err := s.svc.Reports.Positions(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	s.render(w, r, http.StatusOK, "positions.html", page{Title: "Posições", Active: "investments", Data: summary})
}

type transferForm struct {
	Action         string
	Date           string
	SettlementDate string
	Description    string
	FromAccountID  string
	ToAccountID    string
	CardID         string
	InvestmentID   string
	Amount         string
	Status         string
	Kind           string
	Sharing        string
}

type transfersPage struct {
	Transfers   []core.TransferView
	Form        transferForm
	Editing     bool
	Accounts    []core.Account
	Cards       []core.Card
	Investments []core.InvestmentView
	Statuses    []core.Status
	Kinds       []core.TransferKind
	Sharings    []option
}

func readTransfer(f *formReader, id int64) core.Transfer {
	return core.Transfer{
		ID:             id,
		Date:           f.requiredDate("date"),
		SettlementDate: f.date("settlement_date"),
		Description:    f.text("description"),
		FromAccountID:  f.id("from_account_id"),
		ToAccountID:    f.id("to_account_id"),
		CardID:         f.id("card_id"),
		InvestmentID:   f.id("investment_id"),
		Amount:         f.requiredMoney("amount").Abs(),
		Status:         core.Status(f.text("status")),
		Kind:           core.TransferKind(f.text("kind")),
		Sharing:        core.Sharing(f.text("sharing")),
	}
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderTransfers(w, r)
	case http.MethodPost:
		s.saveTransfer(w, r, 0)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleTransferUpdate(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	s.saveTransfer(w, r, id)
}

func (s *Server) handleTransferDelete(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}
	id, err := pathID(r, "id")
	if err == nil {
		err = s.svc.Ledger.DeleteTransfer(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	s.done(w, r, "/transfers", "Transferência excluída", nil)
}

func (s *Server) saveTransfer(w http.ResponseWriter, r *http.Request, id int64) {
	op := applog.OpCreate
	if id != 0 {
		op = applog.OpUpdate
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	f := newFormReader(r.PostForm)
	t := readTransfer(f, id)
	err := f.Err()
	if err == nil {
		check := t
		check.ApplyDefaults()
		err = invalid(check.Validate())
	}
	if err == nil {
		if id == 0 {
			_, err = s.svc.Ledger.CreateTransfer(r.Context(), t)
		} else {
			err = s.svc.Ledger.UpdateTransfer(r.Context(), t)
		}
	}
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.done(w, r, "/transfers", "Transferência salva", func(b *HTMXResponseBuilder) { b.TriggerFormReset() })
}

func (s *Server) renderTransfers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := s.repo.ListTransfers(ctx)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	data := transfersPage{
		Transfers: items,
		Statuses:  core.Statuses,
		Kinds:     core.TransferKinds,
		Sharings:  s.sharingOptions(false),
		Form: transferForm{
			Action:  "/transfers",
			Date:    s.now().Format(core.DateLayout),
			Status:  string(core.Settled),
			Kind:    string(core.BetweenAccounts),
			Sharing: string(core.SharingHalf),
		},
	}

	if v := r.URL.Query().Get("edit"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.fail(w, r, applog.OpRead, &FieldError{Field: "edit", Err: err})
			return
		}
		t, err := s.repo.GetTransfer(ctx, id)
		if err != nil {
			s.fail(w, r, applog.OpRead, err)
			return
		}
		data.Editing = true
		data.Form = transferForm{
			Action:         "/transfers/" + idString(t.ID),
			Date:           t.Date.String(),
			SettlementDate: t.SettlementDate.String(),
			Description:    t.Description,
			FromAccountID:  idString(t.FromAccountID),
			ToAccountID:    idString(t.ToAccountID),
			CardID:         idString(t.CardID),
			InvestmentID:   idString(t.InvestmentID),
			Amount:         t.Amount.Input(),
			Status:         string(t.Status),
			Kind:           string(t.Kind),
			Sharing:        string(t.Sharing),
		}
	}

	if data.Accounts, err = s.repo.ListAccounts(ctx); err == nil {
		if data.Cards, err = s.repo.ListCards(ctx); err == nil {
			data.Investments, err = s.repo.ListInvestments(ctx)
		}
	}
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, http.StatusOK, "transfers.html", page{Title: "Transferências", Active: "transfers", Data: data})
}
