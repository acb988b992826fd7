package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/ports"
)

// ProfileRepository implements ports.ProfileRepository.
type ProfileRepository struct {
	g   *gateway
	col *mongo.Collection
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (_ *domain.Profile, err error) {
	defer observe("profiles.get", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return nil, err
	}
	if !who.canReadProfile(id) {
		return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	var d profileDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, mapErr("find profile", err)
	}
	p := d.toDomain()
	return &p, nil
}

func (r *ProfileRepository) List(ctx context.Context) (_ []domain.Profile, err error) {
	defer observe("profiles.select", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return nil, err
	}
	return findAll(ctx, r.col, who.profileFilter(), newestFirst, profileDoc.toDomain)
}

func (r *ProfileRepository) Insert(ctx context.Context, p domain.Profile) (_ *domain.Profile, err error) {
	defer observe("profiles.insert", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return nil, err
	}
	if p.ID == "" || !who.canInsertProfile(p.ID) {
		return nil, fmt.Errorf("insert profile: %w", domain.ErrForbidden)
	}

	d := profileDoc{
		ID:        p.ID,
		RUT:       p.RUT,
		FullName:  p.FullName,
		Role:      string(p.Role),
		Active:    p.Active,
		CreatedAt: now(),
	}
	if err := insertOne(ctx, r.col, d); err != nil {
		return nil, err
	}
	out := d.toDomain()
	return &out, nil
}

func (r *ProfileRepository) Update(ctx context.Context, id string, patch domain.ProfilePatch) (err error) {
	defer observe("profiles.update", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return err
	}
	if !who.canManageProfiles() {
		return fmt.Errorf("update profile: %w", domain.ErrForbidden)
	}
	return updateOne(ctx, r.col, bson.M{"_id": id}, patch.Fields())
}

func (r *ProfileRepository) Delete(ctx context.Context, id string) (err error) {
	defer observe("profiles.delete", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return err
	}
	if !who.canManageProfiles() {
		return fmt.Errorf("delete profile: %w", domain.ErrForbidden)
	}
	return deleteOne(ctx, r.col, bson.M{"_id": id})
}

// ClientRepository implements ports.ClientRepository.
type ClientRepository struct {
	g  *gateway
	db *mongo.Database
}

func (r *ClientRepository) List(ctx context.Context, filter ports.ClientFilter) (_ []domain.Client, err error) {
	defer observe("clients.select", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return nil, err
	}
	f, ok := who.clientFilter(filter.RUT)
	if !ok {
		return []domain.Client{}, nil
	}
	return findAll(ctx, r.db.Collection(collClients), f, sortBy(filter.Order, newestFirst), clientDoc.toDomain)
}

func (r *ClientRepository) Insert(ctx context.Context, c domain.Client) (_ *domain.Client, err error) {
	defer observe("clients.insert", time.Now(), &err)
	if err := r.g.requireWriter(ctx, "insert client"); err != nil {
		return nil, err
	}

	d := clientDoc{
		ID:        uuid.NewString(),
		Name:      c.Name,
		Type:      c.Type,
		RUT:       c.RUT,
		CreatedBy: c.CreatedBy,
		CreatedAt: now(),
	}
	if err := insertOne(ctx, r.db.Collection(collClients), d); err != nil {
		return nil, err
	}
	out := d.toDomain()
	return &out, nil
}

func (r *ClientRepository) Update(ctx context.Context, id string, patch domain.ClientPatch) (err error) {
	defer observe("clients.update", time.Now(), &err)
	if err := r.g.requireWriter(ctx, "update client"); err != nil {
		return err
	}
	return updateOne(ctx, r.db.Collection(collClients), bson.M{"_id": id}, patch.Fields())
}

// Delete removes the client with its projects and their housing units.
func (r *ClientRepository) Delete(ctx context.Context, id string) (err error) {
	defer observe("clients.delete", time.Now(), &err)
	if err := r.g.requireWriter(ctx, "delete client"); err != nil {
		return err
	}
	if err := deleteOne(ctx, r.db.Collection(collClients), bson.M{"_id": id}); err != nil {
		return err
	}

	projectIDs, err := distinctIDs(ctx, r.db.Collection(collProjects), bson.M{"client_id": id})
	if err != nil {
		return err
	}
	if len(projectIDs) == 0 {
		return nil
	}
	if err := deleteMany(ctx, r.db.Collection(collHousingUnits), bson.M{"project_id": bson.M{"$in": projectIDs}}); err != nil {
		return err
	}
	return deleteMany(ctx, r.db.Collection(collProjects), bson.M{"client_id": id})
}

// ProjectRepository implements ports.ProjectRepository.
type ProjectRepository struct {
	g  *gateway
	db *mongo.Database
}

func (r *ProjectRepository) ListByClient(ctx context.Context, clientID string) (_ []domain.Project, err error) {
	defer observe("projects.select", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return nil, err
	}
	visible, err := clientVisible(ctx, r.db, who, clientID)
	if err != nil || !visible {
		return []domain.Project{}, err
	}
	return findAll(ctx, r.db.Collection(collProjects), bson.M{"client_id": clientID}, newestFirst, projectDoc.toDomain)
}

func (r *ProjectRepository) Insert(ctx context.Context, p domain.Project) (_ *domain.Project, err error) {
	defer observe("projects.insert", time.Now(), &err)
	if err := r.g.requireWriter(ctx, "insert project"); err != nil {
		return nil, err
	}
	if err := exists(ctx, r.db.Collection(collClients), p.ClientID, "client"); err != nil {
		return nil, err
	}

	d := projectDoc{
		ID:        uuid.NewString(),
		ClientID:  p.ClientID,
		Name:      p.Name,
		Status:    p.Status,
		CreatedAt: now(),
	}
	if err := insertOne(ctx, r.db.Collection(collProjects), d); err != nil {
		return nil, err
	}
	out := d.toDomain()
	return &out, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id string, patch domain.ProjectPatch) (err error) {
	defer observe("projects.update", time.Now(), &err)
	if err := r.g.requireWriter(ctx, "update project"); err != nil {
		return err
	}
	return updateOne(ctx, r.db.Collection(collProjects), bson.M{"_id": id}, patch.Fields())
}

// Delete removes the project and its housing units.
func (r *ProjectRepository) Delete(ctx context.Context, id string) (err error) {
	defer observe("projects.delete", time.Now(), &err)
	if err := r.g.requireWriter(ctx, "delete project"); err != nil {
		return err
	}
	if err := deleteOne(ctx, r.db.Collection(collProjects), bson.M{"_id": id}); err != nil {
		return err
	}
	return deleteMany(ctx, r.db.Collection(collHousingUnits), bson.M{"project_id": id})
}

// HousingUnitRepository implements ports.HousingUnitRepository.
type HousingUnitRepository struct {
	g  *gateway
	db *mongo.Database
}

func (r *HousingUnitRepository) ListByProject(ctx context.Context, projectID string) (_ []domain.HousingUnit, err error) {
	defer observe("housing_units.select", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return nil, err
	}
	if !who.isStaff() {
		ctx2, cancel := context.WithTimeout(ctx, defaultTimeout)
		var p projectDoc
		err := r.db.Collection(collProjects).FindOne(ctx2, bson.M{"_id": projectID}).Decode(&p)
		cancel()
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return []domain.HousingUnit{}, nil
			}
			return nil, mapErr("find project", err)
		}
		visible, err := clientVisible(ctx, r.db, who, p.ClientID)
		if err != nil || !visible {
			return []domain.HousingUnit{}, err
		}
	}
	oldestFirst := bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	return findAll(ctx, r.db.Collection(collHousingUnits), bson.M{"project_id": projectID}, oldestFirst, housingUnitDoc.toDomain)
}

func (r *HousingUnitRepository) Insert(ctx context.Context, u domain.HousingUnit) (_ *domain.HousingUnit, err error) {
	defer observe("housing_units.insert", time.Now(), &err)
	if err := r.g.requireWriter(ctx, "insert housing unit"); err != nil {
		return nil, err
	}
	if err := exists(ctx, r.db.Collection(collProjects), u.ProjectID, "project"); err != nil {
		return nil, err
	}

	status := map[string]bool(u.Status)
	if status == nil {
		status = map[string]bool{}
	}
	images := u.Images
	if images == nil {
		images = []string{}
	}
	d := housingUnitDoc{
		ID:        uuid.NewString(),
		ProjectID: u.ProjectID,
		Name:      u.Name,
		Status:    status,
		Comments:  u.Comments,
		Images:    images,
		CreatedAt: now(),
	}
	if err := insertOne(ctx, r.db.Collection(collHousingUnits), d); err != nil {
		return nil, err
	}
	out := d.toDomain()
	return &out, nil
}

func (r *HousingUnitRepository) Update(ctx context.Context, id string, patch domain.HousingUnitPatch) (err error) {
	defer observe("housing_units.update", time.Now(), &err)
	if err := r.g.requireWriter(ctx, "update housing unit"); err != nil {
		return err
	}
	return updateOne(ctx, r.db.Collection(collHousingUnits), bson.M{"_id": id}, patch.Fields())
}

func (r *HousingUnitRepository) Delete(ctx context.Context, id string) (err error) {
	defer observe("housing_units.delete", time.Now(), &err)
	if err := r.g.requireWriter(ctx, "delete housing unit"); err != nil {
		return err
	}
	return deleteOne(ctx, r.db.Collection(collHousingUnits), bson.M{"_id": id})
}

// TransactionRepository implements ports.TransactionRepository.
type TransactionRepository struct {
	g   *gateway
	col *mongo.Collection
}

func (r *TransactionRepository) List(ctx context.Context) (_ []domain.Transaction, err error) {
	defer observe("transactions.select", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return nil, err
	}
	f, ok := who.transactionFilter()
	if !ok {
		return []domain.Transaction{}, nil
	}
	byDate := bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}}
	return findAll(ctx, r.col, f, byDate, transactionDoc.toDomain)
}

func (r *TransactionRepository) Insert(ctx context.Context, t domain.Transaction) (_ *domain.Transaction, err error) {
	defer observe("transactions.insert", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return nil, err
	}
	if !who.canWriteTransaction(t.Type) {
		return nil, fmt.Errorf("insert transaction: %w", domain.ErrForbidden)
	}

	amount, err := toDecimal128(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: amount %s: %w", t.Amount, err)
	}
	createdBy := t.CreatedBy
	if createdBy == "" {
		createdBy = who.userID
	}
	d := transactionDoc{
		ID:          uuid.NewString(),
		Type:        string(t.Type),
		Amount:      amount,
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date,
		CreatedBy:   createdBy,
		CreatedAt:   now(),
	}
	if err := insertOne(ctx, r.col, d); err != nil {
		return nil, err
	}
	out := d.toDomain()
	return &out, nil
}

func (r *TransactionRepository) Update(ctx context.Context, id string, patch domain.TransactionPatch) (err error) {
	defer observe("transactions.update", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return err
	}
	if !who.canWriteTransaction(patch.Type) {
		return fmt.Errorf("update transaction: %w", domain.ErrForbidden)
	}
	f, _ := who.transactionFilter()
	f["_id"] = id
	return updateOne(ctx, r.col, f, patch.Fields())
}

func (r *TransactionRepository) Delete(ctx context.Context, id string) (err error) {
	defer observe("transactions.delete", time.Now(), &err)
	who, err := r.g.caller(ctx)
	if err != nil {
		return err
	}
	f, ok := who.transactionFilter()
	if !ok {
		return fmt.Errorf("delete transaction: %w", domain.ErrForbidden)
	}
	f["_id"] = id
	return deleteOne(ctx, r.col, f)
}

// ── helpers ──────────────────────────────────────────────────────────────────

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (g *gateway) requireWriter(ctx context.Context, op string) error {
	who, err := g.caller(ctx)
	if err != nil {
		return err
	}
	if !who.canWriteRecords() {
		return fmt.Errorf("%s: %w", op, domain.ErrForbidden)
	}
	return nil
}

func sortBy(o ports.Order, fallback bson.D) bson.D {
	if o.Column == "" {
		return fallback
	}
	dir := -1
	if o.Ascending {
		dir = 1
	}
	return bson.D{{Key: o.Column, Value: dir}, {Key: "_id", Value: 1}}
}

// clientVisible reports whether who may see the client's records.
func clientVisible(ctx context.Context, db *mongo.Database, who caller, clientID string) (bool, error) {
	f, ok := who.clientFilter("")
	if !ok {
		return false, nil
	}
	if len(f) == 0 {
		return true, nil
	}
	f["_id"] = clientID

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	n, err := db.Collection(collClients).CountDocuments(ctx, f)
	if err != nil {
		return false, mapErr("check client visibility", err)
	}
	return n > 0, nil
}

func findAll[D any, T any](ctx context.Context, col *mongo.Collection, filter bson.M, sort bson.D, conv func(D) T) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, mapErr("find "+col.Name(), err)
	}
	var docs []D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapErr("decode "+col.Name(), err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		out = append(out, conv(d))
	}
	return out, nil
}

func insertOne(ctx context.Context, col *mongo.Collection, doc any) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if _, err := col.InsertOne(ctx, doc); err != nil {
		return mapErr("insert "+col.Name(), err)
	}
	return nil
}

// updateOne applies fields to the single document matching filter. Nil
// values unset the field.
func updateOne(ctx context.Context, col *mongo.Collection, filter bson.M, fields map[string]any) error {
	update, err := updateDoc(fields)
	if err != nil {
		return fmt.Errorf("update %s: %w", col.Name(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if len(update) == 0 {
		n, err := col.CountDocuments(ctx, filter)
		if err != nil {
			return mapErr("update "+col.Name(), err)
		}
		if n == 0 {
			return fmt.Errorf("update %s: %w", col.Name(), domain.ErrNotFound)
		}
		return nil
	}
	res, err := col.UpdateOne(ctx, filter, update)
	if err != nil {
		return mapErr("update "+col.Name(), err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s: %w", col.Name(), domain.ErrNotFound)
	}
	return nil
}

func updateDoc(fields map[string]any) (bson.M, error) {
	set, unset := bson.M{}, bson.M{}
	for k, v := range fields {
		if v == nil {
			unset[k] = ""
			continue
		}
		bv, err := bsonValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		set[k] = bv
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, nil
}

func deleteOne(ctx context.Context, col *mongo.Collection, filter bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	res, err := col.DeleteOne(ctx, filter)
	if err != nil {
		return mapErr("delete "+col.Name(), err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete %s: %w", col.Name(), domain.ErrNotFound)
	}
	return nil
}

func deleteMany(ctx context.Context, col *mongo.Collection, filter bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if _, err := col.DeleteMany(ctx, filter); err != nil {
		return mapErr("delete "+col.Name(), err)
	}
	return nil
}

func distinctIDs(ctx context.Context, col *mongo.Collection, filter bson.M) ([]any, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	ids, err := col.Distinct(ctx, "_id", filter)
	if err != nil {
		return nil, mapErr("list "+col.Name(), err)
	}
	return ids, nil
}

// exists mirrors a foreign key check on insert.
func exists(ctx context.Context, col *mongo.Collection, id, what string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	n, err := col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr("check "+what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return nil
}
