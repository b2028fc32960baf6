// Package mongodb stores each project as one document with its payments,
// expenses and categories embedded as arrays.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studioledger/internal/core"
	"studioledger/internal/store"
)

const collectionName = "projects"

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// New connects to uri, verifies the connection and makes sure the
// createdAt index exists.
func New(ctx context.Context, uri, database string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("mongodb uri is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	coll := client.Database(database).Collection(collectionName)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create createdAt index: %w", err)
	}
	slog.Info("Connected to MongoDB", "database", database, "collection", collectionName)
	return &Store{client: client, coll: coll, now: time.Now}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping reports whether the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find projects: %w", err)
	}
	var docs []projectDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	out := make([]core.Project, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toProject())
	}
	return out, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (core.Project, error) {
	var doc projectDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Project{}, fmt.Errorf("get %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("find project: %w", err)
	}
	return doc.toProject(), nil
}

func (s *Store) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	p = store.PrepareNew(p, s.now())
	if _, err := s.coll.InsertOne(ctx, fromProject(p)); err != nil {
		return core.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, patch core.ProjectPatch) (core.Project, error) {
	set := patchSet(patch)
	set = append(set, bson.E{Key: "updatedAt", Value: s.now().UTC()})
	return s.findAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}}, id)
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) AppendPayment(ctx context.Context, id string, p core.Payment) (core.Project, error) {
	doc := fromPayment(store.PreparePayment(p))
	return s.push(ctx, id, "payments", doc)
}

func (s *Store) AppendExpense(ctx context.Context, id string, e core.Expense) (core.Project, error) {
	doc := fromExpense(store.PrepareExpense(e))
	return s.push(ctx, id, "expenses", doc)
}

func (s *Store) AppendCategory(ctx context.Context, id string, name string) (core.Project, bool, error) {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "categories", Value: bson.D{{Key: "$ne", Value: name}}},
	}
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "categories", Value: name}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: s.now().UTC()}}},
	}
	p, err := s.findAndUpdate(ctx, filter, update, id)
	if errors.Is(err, store.ErrNotFound) {
		// Either the project is missing or it already has the category.
		p, err = s.GetProject(ctx, id)
		return p, false, err
	}
	if err != nil {
		return core.Project{}, false, err
	}
	return p, true, nil
}

func (s *Store) push(ctx context.Context, id, field string, value any) (core.Project, error) {
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: field, Value: value}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: s.now().UTC()}}},
	}
	return s.findAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, id)
}

func (s *Store) findAndUpdate(ctx context.Context, filter, update bson.D, id string) (core.Project, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc projectDoc
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Project{}, fmt.Errorf("update %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("update project: %w", err)
	}
	return doc.toProject(), nil
}

// patchSet turns the non-nil patch fields into $set entries.
func patchSet(patch core.ProjectPatch) bson.D {
	set := bson.D{}
	if patch.CustomerName != nil {
		set = append(set, bson.E{Key: "customerName", Value: strings.TrimSpace(*patch.CustomerName)})
	}
	if patch.Location != nil {
		set = append(set, bson.E{Key: "location", Value: strings.TrimSpace(*patch.Location)})
	}
	if patch.SquareFeet != nil {
		set = append(set, bson.E{Key: "squareFeet", Value: *patch.SquareFeet})
	}
	if patch.QuotedPrice != nil {
		set = append(set, bson.E{Key: "quotedCents", Value: patch.QuotedPrice.Cents})
	}
	if patch.Categories != nil {
		set = append(set, bson.E{Key: "categories", Value: core.NormalizeCategories(*patch.Categories)})
	}
	return set
}
