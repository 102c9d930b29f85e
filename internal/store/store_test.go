package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testDoc struct {
	Meta  `bson:",inline"`
	Name  string `bson:"name"`
	Count int    `bson:"count"`
}

func TestMetaHasID(t *testing.T) {
	var d testDoc
	assert.False(t, d.HasID())

	d.ID = primitive.NewObjectID()
	assert.True(t, d.HasID())
}

func TestDocMeta(t *testing.T) {
	d := &testDoc{Name: "x"}

	// The embedded meta is addressable through the interface.
	var doc Doc = d
	doc.DocMeta().CreatedAt = 42
	assert.Equal(t, int64(42), d.CreatedAt)
}

func TestSortDoc(t *testing.T) {
	d := sortDoc([]SortField{Asc("start_time"), Desc("created_at")})

	require.Len(t, d, 2)
	assert.Equal(t, bson.E{Key: "start_time", Value: 1}, d[0])
	assert.Equal(t, bson.E{Key: "created_at", Value: -1}, d[1])
}

func TestSetFields(t *testing.T) {
	d := &testDoc{Name: "slot", Count: 3}
	d.ID = primitive.NewObjectID()
	d.CreatedAt = 100
	d.UpdatedAt = 200

	fields, err := setFields(d)
	require.NoError(t, err)

	// _id never goes into a $set payload.
	assert.NotContains(t, fields, "_id")
	assert.Equal(t, "slot", fields["name"])
	assert.Equal(t, int64(100), fields["created_at"])
	assert.Equal(t, int64(200), fields["updated_at"])
}

func TestMetaOmitsUnsetID(t *testing.T) {
	// An unsaved document must not serialize a zero _id, or the server
	// would store ObjectID("000...") instead of generating one.
	raw, err := bson.Marshal(&testDoc{Name: "fresh"})
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.NotContains(t, m, "_id")

	saved := &testDoc{Name: "saved"}
	saved.ID = primitive.NewObjectID()
	raw, err = bson.Marshal(saved)
	require.NoError(t, err)
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Contains(t, m, "_id")
}
