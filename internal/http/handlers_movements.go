package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"

	"financas/internal/core"
	applog "financas/internal/log"
)

// movementForm holds the movement form values as rendered strings.
type movementForm struct {
	Action         string
	Date           string
	SettlementDate string
	Description    string
	CategoryID     string
	AccountID      string
	CardID         string
	Amount         string
	Status         string
	Sharing        string
}

type movementsPage struct {
	Range      DateRange
	Movements  []core.MovementView
	Total      core.Money
	Form       movementForm
	Editing    bool
	Categories []core.Category
	Accounts   []core.Account
	Cards      []core.Card
	Statuses   []core.Status
	Sharings   []option
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func readMovement(f *formReader, id int64) core.Movement {
	return core.Movement{
		ID:             id,
		Date:           f.requiredDate("date"),
		SettlementDate: f.date("settlement_date"),
		Description:    f.text("description"),
		CategoryID:     f.id("category_id"),
		AccountID:      f.id("account_id"),
		CardID:         f.id("card_id"),
		Amount:         f.requiredMoney("amount"),
		Status:         core.Status(f.text("status")),
		Sharing:        core.Sharing(f.text("sharing")),
	}
}

// checkMovement applies the entity rules the service enforces so rule
// failures surface as 422.
func checkMovement(f *formReader, m core.Movement) error {
	if err := f.Err(); err != nil {
		return err
	}
	if m.Amount.Abs().Cents == 0 {
		return invalid(core.ErrInvalidAmount)
	}
	m.ApplyDefaults()
	return invalid(m.Validate())
}

// handleMovements lists movements in a date range on GET and creates one on POST.
func (s *Server) handleMovements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderMovements(w, r)
	case http.MethodPost:
		s.saveMovement(w, r, 0)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleMovementUpdate(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	s.saveMovement(w, r, id)
}

func (s *Server) handleMovementDelete(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	old, err := s.repo.GetMovement(ctx, id)
	if err == nil {
		err = s.svc.Movements.Delete(ctx, id)
	}
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	atomic.AddInt64(&s.movementsWritten, 1)
	s.structLog.LogMovementWritten(ctx, applog.OpDelete, id, old.Description, old.Amount.Cents, old.CategoryName, old.AccountName)
	s.done(w, r, movementsLocation(old.Date), "Movimento excluído", func(b *HTMXResponseBuilder) {
		b.TriggerMovementsChanged(core.PeriodKey(old.Date.Time))
	})
}

func (s *Server) saveMovement(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	op := applog.OpCreate
	if id != 0 {
		op = applog.OpUpdate
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	f := newFormReader(r.PostForm)
	m := readMovement(f, id)
	if err := checkMovement(f, m); err != nil {
		s.fail(w, r, op, err)
		return
	}

	var err error
	if id == 0 {
		m.ID, err = s.svc.Movements.Create(ctx, m)
	} else {
		err = s.svc.Movements.Update(ctx, m)
	}
	if err != nil {
		s.fail(w, r, op, err)
		return
	}

	atomic.AddInt64(&s.movementsWritten, 1)
	s.structLog.LogMovementWritten(ctx, op, m.ID, m.Description, m.Amount.Cents,
		strconv.FormatInt(m.CategoryID, 10), strconv.FormatInt(m.AccountID, 10))
	s.done(w, r, movementsLocation(m.Date), "Movimento salvo", func(b *HTMXResponseBuilder) {
		b.TriggerMovementsChanged(core.PeriodKey(m.Date.Time)).TriggerFormReset()
	})
}

// movementsLocation is the list page for the month containing d.
func movementsLocation(d core.Date) string {
	start := core.MonthStart(d.Time)
	end := core.AddMonths(start, 1).AddDate(0, 0, -1)
	q := url.Values{}
	q.Set("from", start.Format(core.DateLayout))
	q.Set("to", end.Format(core.DateLayout))
	return "/movements?" + q.Encode()
}

func (s *Server) renderMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rng := ParseDateRange(r.URL.Query(), s.now())
	items, err := s.repo.ListMovements(ctx, rng.From, rng.To)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}

	data := movementsPage{
		Range:     rng,
		Movements: items,
		Statuses:  core.Statuses,
		Sharings:  s.sharingOptions(false),
		Form: movementForm{
			Action:  "/movements",
			Date:    s.now().Format(core.DateLayout),
			Status:  string(core.Settled),
			Sharing: string(core.SharingHalf),
		},
	}
	for _, m := range items {
		data.Total.Cents += m.Amount.Cents
	}

	if v := r.URL.Query().Get("edit"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.fail(w, r, applog.OpRead, &FieldError{Field: "edit", Err: err})
			return
		}
		m, err := s.repo.GetMovement(ctx, id)
		if err != nil {
			s.fail(w, r, applog.OpRead, err)
			return
		}
		data.Editing = true
		data.Form = movementForm{
			Action:         "/movements/" + idString(m.ID),
			Date:           m.Date.String(),
			SettlementDate: m.SettlementDate.String(),
			Description:    m.Description,
			CategoryID:     idString(m.CategoryID),
			AccountID:      idString(m.AccountID),
			CardID:         idString(m.CardID),
			Amount:         m.Amount.Abs().Input(),
			Status:         string(m.Status),
			Sharing:        string(m.Sharing),
		}
	}

	if err := s.loadMovementReferences(ctx, &data); err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, http.StatusOK, "movements.html", page{Title: "Movimentos", Active: "movements", Data: data})
}

func (s *Server) loadMovementReferences(ctx context.Context, data *movementsPage) error {
	var err error
	if data.Categories, err = s.repo.ListCategories(ctx); err != nil {
		return err
	}
	if data.Accounts, err = s.repo.ListAccounts(ctx); err != nil {
		return err
	}
	data.Cards, err = s.repo.ListCards(ctx)
	return err
}
