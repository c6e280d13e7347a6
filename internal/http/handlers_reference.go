package http

import (
	"context"
	"net/http"
	"strconv"

	"financas/internal/core"
	applog "financas/internal/log"
)

// referenceField describes one input of a reference form.
type referenceField struct {
	Name    string
	Label   string
	Kind    string // text, number, money or select
	Options []option
}

type referenceRow struct {
	ID     int64
	Cells  []string
	Values map[string]string
}

// referenceResource binds a reference table to the generic list page.
// save creates when id is 0 and updates otherwise.
type referenceResource struct {
	Path    string
	Title   string
	Columns []string
	fields  func(ctx context.Context) ([]referenceField, error)
	list    func(ctx context.Context) ([]referenceRow, error)
	save    func(ctx context.Context, id int64, f *formReader) error
	remove  func(ctx context.Context, id int64) error
}

type referencePage struct {
	Resource referenceResource
	Fields   []referenceField
	Rows     []referenceRow
}

func staticFields(fields ...referenceField) func(context.Context) ([]referenceField, error) {
	return func(context.Context) ([]referenceField, error) { return fields, nil }
}

func textField(name, label string) referenceField {
	return referenceField{Name: name, Label: label, Kind: "text"}
}

func selectField[T ~string](name, label string, values []T) referenceField {
	f := referenceField{Name: name, Label: label, Kind: "select"}
	for _, v := range values {
		f.Options = append(f.Options, option{Value: string(v), Label: string(v)})
	}
	return f
}

func (s *Server) referenceResources() []referenceResource {
	repo := s.repo
	idStr := func(id int64) string { return strconv.FormatInt(id, 10) }

	return []referenceResource{
		{
			Path:    "categories",
			Title:   "Categorias",
			Columns: []string{"Descrição", "Tipo"},
			fields:  staticFields(textField("description", "Descrição"), selectField("type", "Tipo", core.CategoryTypes)),
			list: func(ctx context.Context) ([]referenceRow, error) {
				items, err := repo.ListCategories(ctx)
				rows := make([]referenceRow, 0, len(items))
				for _, c := range items {
					rows = append(rows, referenceRow{
						ID:     c.ID,
						Cells:  []string{c.Description, string(c.Type)},
						Values: map[string]string{"description": c.Description, "type": string(c.Type)},
					})
				}
				return rows, err
			},
			save: func(ctx context.Context, id int64, f *formReader) error {
				c := core.Category{ID: id, Description: f.text("description"), Type: core.CategoryType(f.text("type"))}
				return saveReference(f, c.Validate, id, func() error {
					_, err := repo.CreateCategory(ctx, c)
					return err
				}, func() error { return repo.UpdateCategory(ctx, c) })
			},
			remove: repo.DeleteCategory,
		},
		{
			Path:    "accounts",
			Title:   "Contas",
			Columns: []string{"Descrição"},
			fields:  staticFields(textField("description", "Descrição")),
			list: func(ctx context.Context) ([]referenceRow, error) {
				items, err := repo.ListAccounts(ctx)
				rows := make([]referenceRow, 0, len(items))
				for _, a := range items {
					rows = append(rows, referenceRow{
						ID:     a.ID,
						Cells:  []string{a.Description},
						Values: map[string]string{"description": a.Description},
					})
				}
				return rows, err
			},
			save: func(ctx context.Context, id int64, f *formReader) error {
				a := core.Account{ID: id, Description: f.text("description")}
				return saveReference(f, a.Validate, id, func() error {
					_, err := repo.CreateAccount(ctx, a)
					return err
				}, func() error { return repo.UpdateAccount(ctx, a) })
			},
			remove: repo.DeleteAccount,
		},
		{
			Path:    "cards",
			Title:   "Cartões",
			Columns: []string{"Descrição", "Conta", "Vencimento", "Limite"},
			fields: func(ctx context.Context) ([]referenceField, error) {
				accounts, err := repo.ListAccounts(ctx)
				if err != nil {
					return nil, err
				}
				acc := referenceField{Name: "account_id", Label: "Conta", Kind: "select"}
				for _, a := range accounts {
					acc.Options = append(acc.Options, option{Value: idStr(a.ID), Label: a.Description})
				}
				return []referenceField{
					textField("description", "Descrição"),
					acc,
					{Name: "due_day", Label: "Dia de vencimento", Kind: "number"},
					{Name: "limit", Label: "Limite", Kind: "money"},
				}, nil
			},
			list: func(ctx context.Context) ([]referenceRow, error) {
				items, err := repo.ListCards(ctx)
				rows := make([]referenceRow, 0, len(items))
				for _, c := range items {
					rows = append(rows, referenceRow{
						ID:    c.ID,
						Cells: []string{c.Description, c.AccountName, strconv.Itoa(c.DueDay), c.Limit.String()},
						Values: map[string]string{
							"description": c.Description,
							"account_id":  idStr(c.AccountID),
							"due_day":     strconv.Itoa(c.DueDay),
							"limit":       c.Limit.Input(),
						},
					})
				}
				return rows, err
			},
			save: func(ctx context.Context, id int64, f *formReader) error {
				c := core.Card{
					ID:          id,
					Description: f.text("description"),
					AccountID:   f.id("account_id"),
					DueDay:      f.integer("due_day"),
					Limit:       f.money("limit"),
				}
				return saveReference(f, c.Validate, id, func() error {
					_, err := repo.CreateCard(ctx, c)
					return err
				}, func() error { return repo.UpdateCard(ctx, c) })
			},
			remove: repo.DeleteCard,
		},
		{
			Path:    "tickers",
			Title:   "Ativos",
			Columns: []string{"Descrição", "Classe", "Tipo"},
			fields:  staticFields(textField("description", "Descrição"), textField("class", "Classe"), textField("kind", "Tipo")),
			list: func(ctx context.Context) ([]referenceRow, error) {
				items, err := repo.ListTickers(ctx)
				rows := make([]referenceRow, 0, len(items))
				for _, t := range items {
					rows = append(rows, referenceRow{
						ID:     t.ID,
						Cells:  []string{t.Description, t.Class, t.Kind},
						Values: map[string]string{"description": t.Description, "class": t.Class, "kind": t.Kind},
					})
				}
				return rows, err
			},
			save: func(ctx context.Context, id int64, f *formReader) error {
				t := core.Ticker{ID: id, Description: f.text("description"), Class: f.text("class"), Kind: f.text("kind")}
				return saveReference(f, t.Validate, id, func() error {
					_, err := repo.CreateTicker(ctx, t)
					return err
				}, func() error { return repo.UpdateTicker(ctx, t) })
			},
			remove: repo.DeleteTicker,
		},
		{
			Path:    "currencies",
			Title:   "Moedas",
			Columns: []string{"Código", "Descrição"},
			fields:  staticFields(textField("code", "Código"), textField("description", "Descrição")),
			list: func(ctx context.Context) ([]referenceRow, error) {
				items, err := repo.ListCurrencies(ctx)
				rows := make([]referenceRow, 0, len(items))
				for _, c := range items {
					rows = append(rows, referenceRow{
						ID:     c.ID,
						Cells:  []string{c.Code, c.Description},
						Values: map[string]string{"code": c.Code, "description": c.Description},
					})
				}
				return rows, err
			},
			save: func(ctx context.Context, id int64, f *formReader) error {
				c := core.Currency{ID: id, Code: f.text("code"), Description: f.text("description")}.Normalize()
				return saveReference(f, c.Validate, id, func() error {
					_, err := repo.CreateCurrency(ctx, c)
					return err
				}, func() error { return repo.UpdateCurrency(ctx, c) })
			},
			remove: repo.DeleteCurrency,
		},
		{
			Path:    "operations",
			Title:   "Operações",
			Columns: []string{"Descrição", "Natureza"},
			fields:  staticFields(textField("description", "Descrição"), selectField("nature", "Natureza", core.Natures)),
			list: func(ctx context.Context) ([]referenceRow, error) {
				items, err := repo.ListOperations(ctx)
				rows := make([]referenceRow, 0, len(items))
				for _, o := range items {
					rows = append(rows, referenceRow{
						ID:     o.ID,
						Cells:  []string{o.Description, string(o.Nature)},
						Values: map[string]string{"description": o.Description, "nature": string(o.Nature)},
					})
				}
				return rows, err
			},
			save: func(ctx context.Context, id int64, f *formReader) error {
				o := core.Operation{ID: id, Description: f.text("description"), Nature: core.Nature(f.text("nature"))}
				return saveReference(f, o.Validate, id, func() error {
					_, err := repo.CreateOperation(ctx, o)
					return err
				}, func() error { return repo.UpdateOperation(ctx, o) })
			},
			remove: repo.DeleteOperation,
		},
	}
}

// saveReference checks field and entity errors before writing.
func saveReference(f *formReader, validate func() error, id int64, create, update func() error) error {
	if err := f.Err(); err != nil {
		return err
	}
	if err := validate(); err != nil {
		return invalid(err)
	}
	if id == 0 {
		return create()
	}
	return update()
}

// handleReferenceList lists a reference table on GET and creates a row on POST.
func (s *Server) handleReferenceList(res referenceResource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.renderReference(w, r, res)
		case http.MethodPost:
			s.saveReferenceForm(w, r, res, 0)
		default:
			MethodNotAllowedError("GET, POST").Write(w)
		}
	}
}

func (s *Server) handleReferenceUpdate(res referenceResource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp := RequirePOST(r); resp != nil {
			resp.Write(w)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			s.fail(w, r, applog.OpUpdate, err)
			return
		}
		s.saveReferenceForm(w, r, res, id)
	}
}

func (s *Server) handleReferenceDelete(res referenceResource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp := RequireMethod(r, http.MethodPost, http.MethodDelete); resp != nil {
			resp.Write(w)
			return
		}
		id, err := pathID(r, "id")
		if err == nil {
			err = res.remove(r.Context(), id)
		}
		if err != nil {
			s.fail(w, r, applog.OpDelete, err)
			return
		}
		s.done(w, r, "/"+res.Path, "Registro excluído", func(b *HTMXResponseBuilder) {
			b.TriggerReferenceChanged(res.Path)
		})
	}
}

func (s *Server) renderReference(w http.ResponseWriter, r *http.Request, res referenceResource) {
	fields, err := res.fields(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	rows, err := res.list(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, http.StatusOK, "reference.html", page{
		Title:  res.Title,
		Active: res.Path,
		Data:   referencePage{Resource: res, Fields: fields, Rows: rows},
	})
}

func (s *Server) saveReferenceForm(w http.ResponseWriter, r *http.Request, res referenceResource, id int64) {
	op := applog.OpCreate
	if id != 0 {
		op = applog.OpUpdate
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	if err := res.save(r.Context(), id, newFormReader(r.PostForm)); err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Reference saved",
		"resource", res.Path,
		"id", id,
		applog.FieldOperation, op)
	s.done(w, r, "/"+res.Path, "Registro salvo", func(b *HTMXResponseBuilder) {
		b.TriggerReferenceChanged(res.Path).TriggerFormReset()
	})
}
