package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/silianos/voyage-api/internal/core/domain"
	"github.com/silianos/voyage-api/internal/core/ports"
)

// DocumentStore hands out schemaless collections for the content resources.
type DocumentStore struct {
	db *mongo.Database
}

func NewDocumentStore(db *mongo.Database) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Collection(name string) ports.DocumentCollection {
	return &DocumentRepository{col: s.db.Collection(name)}
}

// DocumentRepository implements ports.DocumentCollection. createdAt and
// updatedAt are maintained here.
type DocumentRepository struct {
	col *mongo.Collection
}

func (r *DocumentRepository) Find(ctx context.Context, filter map[string]any, sort []domain.SortField) ([]*domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find()
	if len(sort) > 0 {
		opts.SetSort(sortSpec(sort))
	}

	cur, err := r.col.Find(ctx, toStored(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.col.Name(), err)
	}
	defer cur.Close(ctx)

	docs := make([]*domain.Document, 0)
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.col.Name(), err)
		}
		docs = append(docs, fromStored(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.col.Name(), err)
	}
	return docs, nil
}

func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*domain.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var raw bson.M
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", r.col.Name(), err)
	}
	return fromStored(raw), nil
}

func (r *DocumentRepository) Create(ctx context.Context, fields map[string]any) (*domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := toStored(fields)
	delete(doc, "_id")
	doc[domain.FieldCreatedAt] = now
	doc[domain.FieldUpdatedAt] = now

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", r.col.Name(), err)
	}
	oid, _ := res.InsertedID.(primitive.ObjectID)
	doc["_id"] = oid
	return fromStored(doc), nil
}

func (r *DocumentRepository) UpdateByID(ctx context.Context, id string, fields map[string]any) (*domain.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	set := toStored(fields)
	delete(set, "_id")
	delete(set, domain.FieldCreatedAt)
	set[domain.FieldUpdatedAt] = time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var raw bson.M
	err = r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update %s: %w", r.col.Name(), err)
	}
	return fromStored(raw), nil
}

func (r *DocumentRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", r.col.Name(), err)
	}
	return res.DeletedCount > 0, nil
}

func (r *DocumentRepository) Distinct(ctx context.Context, field string, filter map[string]any) ([]any, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	values, err := r.col.Distinct(ctx, field, toStored(filter))
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", r.col.Name(), field, err)
	}
	for i, v := range values {
		values[i] = plain(v)
	}
	return values, nil
}

func sortSpec(sort []domain.SortField) bson.D {
	spec := make(bson.D, 0, len(sort))
	for _, s := range sort {
		dir := 1
		if s.Descending {
			dir = -1
		}
		spec = append(spec, bson.E{Key: s.Field, Value: dir})
	}
	return spec
}

// toStored converts service-level values to their BSON form. References become ObjectIDs.
func toStored(fields map[string]any) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		if ref, ok := v.(domain.Ref); ok {
			if oid, err := primitive.ObjectIDFromHex(string(ref)); err == nil {
				out[k] = oid
				continue
			}
			out[k] = string(ref)
			continue
		}
		out[k] = v
	}
	return out
}

// fromStored builds a Document from a raw record, flattening driver types into
// plain values.
func fromStored(raw bson.M) *domain.Document {
	doc := &domain.Document{Fields: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case "_id":
			if oid, ok := v.(primitive.ObjectID); ok {
				doc.ID = oid.Hex()
			} else {
				doc.ID = fmt.Sprint(v)
			}
		case domain.FieldCreatedAt:
			doc.CreatedAt = asTime(v)
		case domain.FieldUpdatedAt:
			doc.UpdatedAt = asTime(v)
		case "__v":
		default:
			doc.Fields[k] = plain(v)
		}
	}
	return doc
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	}
	return time.Time{}
}

func plain(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	}
	return v
}
