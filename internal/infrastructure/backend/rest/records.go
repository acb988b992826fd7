package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/ports"
)

// gateway issues every call with the access token of one identity, so the
// backend's row-level policies see that identity.
type gateway struct {
	c     *Client
	token string
}

func (g *gateway) Profiles() ports.ProfileRepository {
	return profiles{table{g, "profiles"}}
}

func (g *gateway) Clients() ports.ClientRepository {
	return clients{table{g, "clients"}}
}

func (g *gateway) Projects() ports.ProjectRepository {
	return projects{table{g, "projects"}}
}

func (g *gateway) HousingUnits() ports.HousingUnitRepository {
	return housingUnits{table{g, "housing_units"}}
}

func (g *gateway) Transactions() ports.TransactionRepository {
	return transactions{table{g, "transactions"}}
}

func (g *gateway) Storage() ports.ObjectStorage { return &storage{g: g} }

func (g *gateway) Procedures() ports.ProcedureCaller { return &procedures{g: g} }

// table wraps the record API of one table.
type table struct {
	g    *gateway
	name string
}

func (t table) op(verb string) string {
	return t.name + "." + verb
}

func (t table) path() string {
	return "/rest/v1/" + t.name
}

// selectRows lists rows matching filters (column → value, equality only).
func (t table) selectRows(ctx context.Context, filters map[string]string, order ports.Order, out any) error {
	q := url.Values{"select": {"*"}}
	for col, v := range filters {
		q.Set(col, "eq."+v)
	}
	if order.Column != "" {
		dir := "desc"
		if order.Ascending {
			dir = "asc"
		}
		q.Set("order", order.Column+"."+dir)
	}
	return t.g.c.do(ctx, request{
		op:     t.op("select"),
		method: http.MethodGet,
		path:   t.path(),
		query:  q,
		token:  t.g.token,
	}, out)
}

func (t table) insertRow(ctx context.Context, row map[string]any, out any) error {
	return t.g.c.do(ctx, request{
		op:     t.op("insert"),
		method: http.MethodPost,
		path:   t.path(),
		query:  url.Values{"select": {"*"}},
		token:  t.g.token,
		header: http.Header{"Prefer": {"return=representation"}},
		body:   row,
	}, out)
}

// updateRow patches one row by id. A row the policies hide is reported as
// domain.ErrNotFound; the API itself answers such an update with no rows.
func (t table) updateRow(ctx context.Context, id string, fields map[string]any) error {
	return t.byID(ctx, "update", http.MethodPatch, id, fields)
}

func (t table) deleteRow(ctx context.Context, id string) error {
	return t.byID(ctx, "delete", http.MethodDelete, id, nil)
}

func (t table) byID(ctx context.Context, verb, method, id string, body any) error {
	var rows []struct {
		ID string `json:"id"`
	}
	err := t.g.c.do(ctx, request{
		op:     t.op(verb),
		method: method,
		path:   t.path(),
		query:  url.Values{"id": {"eq." + id}, "select": {"id"}},
		token:  t.g.token,
		header: http.Header{"Prefer": {"return=representation"}},
		body:   body,
	}, &rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s %s: %w", t.op(verb), id, domain.ErrNotFound)
	}
	return nil
}

// first returns the single row of an insert or lookup.
func first[T any](op string, rows []T) (*T, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return &rows[0], nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var newestFirst = ports.Order{Column: "created_at"}

type profiles struct{ t table }

func (r profiles) Get(ctx context.Context, id string) (*domain.Profile, error) {
	var rows []domain.Profile
	if err := r.t.selectRows(ctx, map[string]string{"id": id}, ports.Order{}, &rows); err != nil {
		return nil, err
	}
	return first(r.t.op("get"), rows)
}

func (r profiles) List(ctx context.Context) ([]domain.Profile, error) {
	var rows []domain.Profile
	err := r.t.selectRows(ctx, nil, newestFirst, &rows)
	return rows, err
}

func (r profiles) Insert(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	var rows []domain.Profile
	err := r.t.insertRow(ctx, map[string]any{
		"id":        p.ID,
		"rut":       p.RUT,
		"full_name": p.FullName,
		"role":      string(p.Role),
		"active":    p.Active,
	}, &rows)
	if err != nil {
		return nil, err
	}
	return first(r.t.op("insert"), rows)
}

func (r profiles) Update(ctx context.Context, id string, patch domain.ProfilePatch) error {
	return r.t.updateRow(ctx, id, patch.Fields())
}

func (r profiles) Delete(ctx context.Context, id string) error {
	return r.t.deleteRow(ctx, id)
}

type clients struct{ t table }

func (r clients) List(ctx context.Context, filter ports.ClientFilter) ([]domain.Client, error) {
	var filters map[string]string
	if filter.RUT != "" {
		filters = map[string]string{"rut": filter.RUT}
	}
	var rows []domain.Client
	err := r.t.selectRows(ctx, filters, filter.Order, &rows)
	return rows, err
}

func (r clients) Insert(ctx context.Context, c domain.Client) (*domain.Client, error) {
	var rows []domain.Client
	err := r.t.insertRow(ctx, map[string]any{
		"name":       c.Name,
		"type":       c.Type,
		"rut":        nullable(c.RUT),
		"created_by": nullable(c.CreatedBy),
	}, &rows)
	if err != nil {
		return nil, err
	}
	return first(r.t.op("insert"), rows)
}

func (r clients) Update(ctx context.Context, id string, patch domain.ClientPatch) error {
	return r.t.updateRow(ctx, id, patch.Fields())
}

func (r clients) Delete(ctx context.Context, id string) error {
	return r.t.deleteRow(ctx, id)
}

type projects struct{ t table }

func (r projects) ListByClient(ctx context.Context, clientID string) ([]domain.Project, error) {
	var rows []domain.Project
	err := r.t.selectRows(ctx, map[string]string{"client_id": clientID}, newestFirst, &rows)
	return rows, err
}

func (r projects) Insert(ctx context.Context, p domain.Project) (*domain.Project, error) {
	var rows []domain.Project
	err := r.t.insertRow(ctx, map[string]any{
		"client_id": p.ClientID,
		"name":      p.Name,
		"status":    p.Status,
	}, &rows)
	if err != nil {
		return nil, err
	}
	return first(r.t.op("insert"), rows)
}

func (r projects) Update(ctx context.Context, id string, patch domain.ProjectPatch) error {
	return r.t.updateRow(ctx, id, patch.Fields())
}

func (r projects) Delete(ctx context.Context, id string) error {
	return r.t.deleteRow(ctx, id)
}

type housingUnits struct{ t table }

func (r housingUnits) ListByProject(ctx context.Context, projectID string) ([]domain.HousingUnit, error) {
	var rows []domain.HousingUnit
	err := r.t.selectRows(ctx, map[string]string{"project_id": projectID},
		ports.Order{Column: "created_at", Ascending: true}, &rows)
	return rows, err
}

func (r housingUnits) Insert(ctx context.Context, u domain.HousingUnit) (*domain.HousingUnit, error) {
	status := u.Status
	if status == nil {
		status = domain.Checklist{}
	}
	images := u.Images
	if images == nil {
		images = []string{}
	}
	var rows []domain.HousingUnit
	err := r.t.insertRow(ctx, map[string]any{
		"project_id": u.ProjectID,
		"name":       u.Name,
		"status":     status,
		"comments":   u.Comments,
		"images":     images,
	}, &rows)
	if err != nil {
		return nil, err
	}
	return first(r.t.op("insert"), rows)
}

func (r housingUnits) Update(ctx context.Context, id string, patch domain.HousingUnitPatch) error {
	return r.t.updateRow(ctx, id, patch.Fields())
}

func (r housingUnits) Delete(ctx context.Context, id string) error {
	return r.t.deleteRow(ctx, id)
}

type transactions struct{ t table }

func (r transactions) List(ctx context.Context) ([]domain.Transaction, error) {
	var rows []domain.Transaction
	err := r.t.selectRows(ctx, nil, ports.Order{Column: "date"}, &rows)
	return rows, err
}

func (r transactions) Insert(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	var rows []domain.Transaction
	err := r.t.insertRow(ctx, map[string]any{
		"type":        string(tx.Type),
		"amount":      tx.Amount,
		"category":    tx.Category,
		"description": tx.Description,
		"date":        tx.Date,
		"created_by":  nullable(tx.CreatedBy),
	}, &rows)
	if err != nil {
		return nil, err
	}
	return first(r.t.op("insert"), rows)
}

func (r transactions) Update(ctx context.Context, id string, patch domain.TransactionPatch) error {
	return r.t.updateRow(ctx, id, patch.Fields())
}

func (r transactions) Delete(ctx context.Context, id string) error {
	return r.t.deleteRow(ctx, id)
}
