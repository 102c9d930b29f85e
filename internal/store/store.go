package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNoDocuments is returned when a lookup matches nothing.
	ErrNoDocuments = errors.New("store: no matching document")
)

// Meta carries the fields every persisted document has. Entities embed it;
// the store owns both timestamps and the identifier. An unset identifier
// (zero ObjectID) marks an entity that has never been saved and is omitted
// from the insert payload.
type Meta struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt int64              `bson:"created_at" json:"created_at"`
	UpdatedAt int64              `bson:"updated_at" json:"updated_at"`
}

// DocMeta satisfies Doc for any entity embedding Meta.
func (m *Meta) DocMeta() *Meta { return m }

// HasID reports whether the document has been assigned an identifier.
func (m *Meta) HasID() bool { return !m.ID.IsZero() }

// Doc is the contract an entity must satisfy to be stored.
type Doc interface {
	DocMeta() *Meta
}

// SortField is one element of an ordered sort specification.
type SortField struct {
	Field string
	Desc  bool
}

// Asc sorts ascending on field.
func Asc(field string) SortField { return SortField{Field: field} }

// Desc sorts descending on field.
func Desc(field string) SortField { return SortField{Field: field, Desc: true} }

func sortDoc(fields []SortField) bson.D {
	d := make(bson.D, 0, len(fields))
	for _, f := range fields {
		dir := 1
		if f.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: f.Field, Value: dir})
	}
	return d
}

// Timeout bounds every store call so a wedged server surfaces as an error
// instead of a hung request. Callers may shorten it further via ctx.
var Timeout = 5 * time.Second

func opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, Timeout)
}

// FindByID fetches a single document by identifier.
func FindByID[T any](ctx context.Context, coll *mongo.Collection, id primitive.ObjectID) (*T, error) {
	return FindOne[T](ctx, coll, bson.D{{Key: "_id", Value: id}})
}

// FindOne fetches the first document matching filter.
func FindOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.D) (*T, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var out T
	err := coll.FindOne(ctx, filter).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoDocuments
		}
		return nil, fmt.Errorf("store: find one in %s: %w", coll.Name(), err)
	}
	return &out, nil
}

// Find fetches all documents matching filter, in the given sort order.
// No match yields an empty slice, not an error.
func Find[T any](ctx context.Context, coll *mongo.Collection, filter bson.D, sort ...SortField) ([]T, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	opts := options.Find()
	if len(sort) > 0 {
		opts.SetSort(sortDoc(sort))
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("store: find in %s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("store: decode from %s: %w", coll.Name(), err)
	}
	return out, nil
}

// InsertMany inserts docs in order and assigns the generated identifiers back
// into the inputs positionally. The driver reports InsertedIDs in input order
// for ordered inserts, which this relies on.
func InsertMany[T Doc](ctx context.Context, coll *mongo.Collection, docs []T) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	ctx, cancel := opCtx(ctx)
	defer cancel()

	now := time.Now().Unix()
	payload := make([]interface{}, len(docs))
	for i, d := range docs {
		meta := d.DocMeta()
		meta.CreatedAt = now
		meta.UpdatedAt = now
		payload[i] = d
	}

	res, err := coll.InsertMany(ctx, payload, options.InsertMany().SetOrdered(true))
	if err != nil {
		return 0, fmt.Errorf("store: insert many into %s: %w", coll.Name(), err)
	}

	for i, raw := range res.InsertedIDs {
		if id, ok := raw.(primitive.ObjectID); ok && i < len(docs) {
			docs[i].DocMeta().ID = id
		}
	}
	return len(res.InsertedIDs), nil
}

// Save persists doc: an insert when it has no identifier yet, otherwise a
// full-document $set update. Timestamps are stamped here, never by callers.
// This is an upsert keyed on identifier presence, not an atomic
// compare-and-swap; conditional transitions go through UpdateOne.
func Save[T Doc](ctx context.Context, coll *mongo.Collection, doc T) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	meta := doc.DocMeta()
	now := time.Now().Unix()
	meta.UpdatedAt = now

	if !meta.HasID() {
		meta.CreatedAt = now
		res, err := coll.InsertOne(ctx, doc)
		if err != nil {
			return fmt.Errorf("store: insert into %s: %w", coll.Name(), err)
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			meta.ID = id
		}
		return nil
	}

	fields, err := setFields(doc)
	if err != nil {
		return fmt.Errorf("store: encode %s document: %w", coll.Name(), err)
	}

	_, err = coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: meta.ID}},
		bson.D{{Key: "$set", Value: fields}},
	)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", coll.Name(), err)
	}
	return nil
}

// setFields flattens doc into the $set payload, leaving _id out since Mongo
// treats it as immutable.
func setFields(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	delete(m, "_id")
	return m, nil
}

// Delete removes doc by identifier. It reports whether a delete was
// attempted, not whether a document existed.
func Delete(ctx context.Context, coll *mongo.Collection, doc Doc) (bool, error) {
	meta := doc.DocMeta()
	if !meta.HasID() {
		return false, nil
	}

	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: meta.ID}}); err != nil {
		return false, fmt.Errorf("store: delete from %s: %w", coll.Name(), err)
	}
	return true, nil
}

// UpdateOne applies update to the first document matching filter and returns
// how many documents were modified. A conditional state transition is
// expressed by folding the precondition into filter and checking for zero.
func UpdateOne(ctx context.Context, coll *mongo.Collection, filter, update bson.D) (int64, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("store: update in %s: %w", coll.Name(), err)
	}
	return res.ModifiedCount, nil
}
