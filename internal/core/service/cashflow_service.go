package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/ports"
	"github.com/electrix/tracker/internal/core/view"
)

const screenCashFlow = "cashflow"

// TransactionInput is the transaction form. ID is empty for a new entry.
type TransactionInput struct {
	ID          string
	Type        string
	Amount      string
	Category    string
	Description string
	Date        string
}

type CashFlowService struct {
	backend ports.Backend
	views   screenStore[view.CashFlow, *view.CashFlow]
	now     func() time.Time
	log     zerolog.Logger
}

func NewCashFlowService(backend ports.Backend, views ports.ViewStore, log zerolog.Logger) *CashFlowService {
	return &CashFlowService{
		backend: backend,
		views:   newScreenStore[view.CashFlow](views, screenCashFlow, log),
		now:     time.Now,
		log:     log,
	}
}

func (s *CashFlowService) Show(ctx context.Context, id identity.Identity) (*view.CashFlow, error) {
	return s.views.show(ctx, id.SessionID(),
		func(*view.CashFlow) bool { return true },
		func(ctx context.Context, v *view.CashFlow) error {
			txs, err := s.backend.As(id.Auth()).Transactions().List(ctx)
			v.Load(txs)
			if err != nil {
				return fmt.Errorf("list transactions: %w", err)
			}
			return nil
		})
}

// Save inserts or updates a transaction. Entries without amount or
// description are ignored.
func (s *CashFlowService) Save(ctx context.Context, id identity.Identity, in TransactionInput) error {
	sid := id.SessionID()
	if strings.TrimSpace(in.Amount) == "" || strings.TrimSpace(in.Description) == "" {
		return nil
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		return s.views.alert(ctx, sid, view.Alert{Title: "Error al guardar", Message: "El monto ingresado no es válido."})
	}

	patch := domain.TransactionPatch{
		Type:        domain.TransactionType(in.Type),
		Amount:      amount,
		Category:    in.Category,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
	}
	if !patch.Type.Valid() {
		patch.Type = domain.TransactionExpense
	}
	if patch.Category == "" {
		patch.Category = domain.DefaultCategory
	}
	if _, err := time.Parse(domain.DateLayout, patch.Date); err != nil {
		patch.Date = s.now().Format(domain.DateLayout)
	}

	if in.ID != "" {
		return s.views.mutate(ctx, sid, mutation[*view.CashFlow]{
			action: "update_tx",
			key:    view.Key("tx", in.ID),
			call: func(ctx context.Context) (func(*view.CashFlow), error) {
				if err := s.backend.As(id.Auth()).Transactions().Update(ctx, in.ID, patch); err != nil {
					return nil, err
				}
				return func(v *view.CashFlow) {
					if t, ok := v.Find(in.ID); ok {
						v.Replace(patch.Apply(t))
					}
				}, nil
			},
		})
	}

	tx := patch.Apply(domain.Transaction{})
	if id.Profile != nil {
		tx.CreatedBy = id.Profile.ID
	}
	return s.views.mutate(ctx, sid, mutation[*view.CashFlow]{
		action: "create_tx",
		key:    view.Key("tx", "new"),
		call: func(ctx context.Context) (func(*view.CashFlow), error) {
			created, err := s.backend.As(id.Auth()).Transactions().Insert(ctx, tx)
			if err != nil {
				return nil, err
			}
			return func(v *view.CashFlow) { v.Add(*created) }, nil
		},
	})
}

// Edit loads a transaction into the form; an empty id closes the form.
func (s *CashFlowService) Edit(ctx context.Context, id identity.Identity, txID string) error {
	_, err := s.views.update(ctx, id.SessionID(), func(v *view.CashFlow) error {
		if _, ok := v.Find(txID); !ok {
			txID = ""
		}
		v.EditingID = txID
		v.Settle()
		return nil
	})
	return err
}

func (s *CashFlowService) Delete(ctx context.Context, id identity.Identity, txID string, confirmed bool) error {
	sid := id.SessionID()
	ok, err := s.views.confirm(ctx, sid, view.Confirmation{
		Action:   "delete_tx",
		TargetID: txID,
		Prompt:   "¿Estás seguro de eliminar este registro?",
	}, confirmed)
	if err != nil || !ok {
		return err
	}

	return s.views.mutate(ctx, sid, mutation[*view.CashFlow]{
		action: "delete_tx",
		key:    view.Key("tx", txID),
		call: func(ctx context.Context) (func(*view.CashFlow), error) {
			if err := s.backend.As(id.Auth()).Transactions().Delete(ctx, txID); err != nil {
				return nil, err
			}
			return func(v *view.CashFlow) { v.Remove(txID) }, nil
		},
	})
}

func (s *CashFlowService) Dismiss(ctx context.Context, id identity.Identity) error {
	return s.views.dismiss(ctx, id.SessionID())
}
