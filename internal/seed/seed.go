// Package seed loads reference data (categories, accounts, cards, tickers,
// currencies and operation types) from a TOML file into storage.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"financas/internal/core"
	"financas/internal/storage"
)

// File is the seed document layout.
type File struct {
	Categories []Category  `toml:"categories"`
	Accounts   []string    `toml:"accounts"`
	Cards      []Card      `toml:"cards"`
	Tickers    []Ticker    `toml:"tickers"`
	Currencies []Currency  `toml:"currencies"`
	Operations []Operation `toml:"operations"`
}

type Category struct {
	Name string `toml:"name"`
	Type string `toml:"type"` // Receita or Despesa
}

type Card struct {
	Name    string `toml:"name"`
	Account string `toml:"account"`
	DueDay  int    `toml:"due_day"`
	Limit   string `toml:"limit"`
}

type Ticker struct {
	Name  string `toml:"name"`
	Class string `toml:"class"`
	Kind  string `toml:"kind"`
}

type Currency struct {
	Code string `toml:"code"`
	Name string `toml:"name"`
}

type Operation struct {
	Name   string `toml:"name"`
	Nature string `toml:"nature"` // Entrada or Saida
}

// Store is the write side the seeder needs.
type Store interface {
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListCards(ctx context.Context) ([]core.Card, error)
	CreateCategory(ctx context.Context, c core.Category) (int64, error)
	CreateAccount(ctx context.Context, a core.Account) (int64, error)
	CreateCard(ctx context.Context, c core.Card) (int64, error)
	CreateTicker(ctx context.Context, t core.Ticker) (int64, error)
	CreateCurrency(ctx context.Context, c core.Currency) (int64, error)
	CreateOperation(ctx context.Context, o core.Operation) (int64, error)
}

// Result counts created and already present entries.
type Result struct {
	Created  int
	Existing int
}

// Load reads and parses a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// Apply creates every entry of f. Entries that already exist are counted and
// skipped, so running the same seed twice is harmless.
func Apply(ctx context.Context, s Store, f *File) (Result, error) {
	var res Result
	add := func(kind, name string, create func() (int64, error)) error {
		_, err := create()
		switch {
		case err == nil:
			res.Created++
			return nil
		case errors.Is(err, storage.ErrDuplicate):
			res.Existing++
			return nil
		default:
			return fmt.Errorf("%s %q: %w", kind, name, err)
		}
	}

	for _, c := range f.Categories {
		cat := core.Category{Description: c.Name, Type: core.CategoryType(c.Type)}
		if err := cat.Validate(); err != nil {
			return res, fmt.Errorf("category %q: %w", c.Name, err)
		}
		if err := add("category", c.Name, func() (int64, error) { return s.CreateCategory(ctx, cat) }); err != nil {
			return res, err
		}
	}

	for _, name := range f.Accounts {
		a := core.Account{Description: name}
		if err := a.Validate(); err != nil {
			return res, fmt.Errorf("account %q: %w", name, err)
		}
		if err := add("account", name, func() (int64, error) { return s.CreateAccount(ctx, a) }); err != nil {
			return res, err
		}
	}

	if len(f.Cards) > 0 {
		accounts, err := s.ListAccounts(ctx)
		if err != nil {
			return res, fmt.Errorf("list accounts: %w", err)
		}
		byName := make(map[string]int64, len(accounts))
		for _, a := range accounts {
			byName[a.Description] = a.ID
		}
		// card names carry no unique constraint
		existing, err := s.ListCards(ctx)
		if err != nil {
			return res, fmt.Errorf("list cards: %w", err)
		}
		seen := make(map[string]bool, len(existing))
		for _, c := range existing {
			seen[c.Description] = true
		}
		for _, c := range f.Cards {
			if seen[c.Name] {
				res.Existing++
				continue
			}
			seen[c.Name] = true
			id, ok := byName[c.Account]
			if !ok {
				return res, fmt.Errorf("card %q: unknown account %q", c.Name, c.Account)
			}
			var limit core.Money
			if c.Limit != "" {
				if limit, err = core.ParseAmount(c.Limit); err != nil {
					return res, fmt.Errorf("card %q: %w", c.Name, err)
				}
			}
			card := core.Card{Description: c.Name, AccountID: id, DueDay: c.DueDay, Limit: limit}
			if err := card.Validate(); err != nil {
				return res, fmt.Errorf("card %q: %w", c.Name, err)
			}
			if err := add("card", c.Name, func() (int64, error) { return s.CreateCard(ctx, card) }); err != nil {
				return res, err
			}
		}
	}

	for _, t := range f.Tickers {
		tk := core.Ticker{Description: t.Name, Class: t.Class, Kind: t.Kind}
		if err := tk.Validate(); err != nil {
			return res, fmt.Errorf("ticker %q: %w", t.Name, err)
		}
		if err := add("ticker", t.Name, func() (int64, error) { return s.CreateTicker(ctx, tk) }); err != nil {
			return res, err
		}
	}

	for _, c := range f.Currencies {
		cur := core.Currency{Code: c.Code, Description: c.Name}.Normalize()
		if err := cur.Validate(); err != nil {
			return res, fmt.Errorf("currency %q: %w", c.Code, err)
		}
		if err := add("currency", cur.Code, func() (int64, error) { return s.CreateCurrency(ctx, cur) }); err != nil {
			return res, err
		}
	}

	for _, o := range f.Operations {
		op := core.Operation{Description: o.Name, Nature: core.Nature(o.Nature)}
		if err := op.Validate(); err != nil {
			return res, fmt.Errorf("operation %q: %w", o.Name, err)
		}
		if err := add("operation", o.Name, func() (int64, error) { return s.CreateOperation(ctx, op) }); err != nil {
			return res, err
		}
	}

	slog.InfoContext(ctx, "Seed applied", "created", res.Created, "existing", res.Existing)
	return res, nil
}
