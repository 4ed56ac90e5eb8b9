// Package mongo is the MongoDB backend for keyvmongo.
//
// Records are stored as documents {key, value, expiresAt}. The collection carries
// a unique index on key and a TTL index on expiresAt with expireAfterSeconds=0,
// so the server's TTL monitor removes a document once its expiresAt has passed.
// The monitor runs on its own interval (60s by default); removal is not immediate.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	gomongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/unkn0wn-root/keyvmongo/docstore"
)

// DefaultDatabase is used when the connection string names no database.
const DefaultDatabase = "test"

const (
	fieldKey       = "key"
	fieldValue     = "value"
	fieldExpiresAt = "expiresAt"
)

var ErrNilDatabase = errors.New("mongo backend: nil database")

// Database adapts a driver database handle to docstore.Database.
type Database struct {
	db *gomongo.Database
}

var _ docstore.Database = (*Database)(nil)

// Wrap adapts an existing driver database. The caller keeps ownership of its client.
func Wrap(db *gomongo.Database) (*Database, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	return &Database{db: db}, nil
}

// Dial connects a new client to uri, verifies the server answers, and selects the
// database named in uri (DefaultDatabase if none). The returned client is owned
// by the caller. opts may be nil.
func Dial(ctx context.Context, uri string, opts *options.ClientOptions) (*Database, *gomongo.Client, error) {
	name, err := DatabaseName(uri)
	if err != nil {
		return nil, nil, err
	}

	all := []*options.ClientOptions{options.Client().ApplyURI(uri)}
	if opts != nil {
		all = append(all, opts)
	}
	client, err := gomongo.Connect(ctx, all...)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Database{db: client.Database(name)}, client, nil
}

// DatabaseName returns the database selected by a connection string.
func DatabaseName(uri string) (string, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("mongo uri: %w", err)
	}
	if cs.Database == "" {
		return DefaultDatabase, nil
	}
	return cs.Database, nil
}

func (d *Database) Collection(name string) docstore.Collection {
	return &Collection{c: d.db.Collection(name)}
}

// Raw exposes the driver handle.
func (d *Database) Raw() *gomongo.Database { return d.db }

// Collection adapts a driver collection to docstore.Collection.
type Collection struct {
	c *gomongo.Collection
}

var _ docstore.Collection = (*Collection)(nil)

type rawValue struct{ rv bson.RawValue }

func (v rawValue) Decode(dst any) error {
	if err := v.rv.Unmarshal(dst); err != nil {
		return fmt.Errorf("mongo decode value: %w", err)
	}
	return nil
}

func keyFilter(key string) bson.D {
	return bson.D{{Key: fieldKey, Value: key}}
}

func (c *Collection) Find(ctx context.Context, key string) (docstore.Value, bool, error) {
	raw, err := c.c.FindOne(ctx, keyFilter(key)).Raw()
	if errors.Is(err, gomongo.ErrNoDocuments) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err
	}
	rv, err := raw.LookupErr(fieldValue)
	if err != nil {
		// document without a value field; read as null
		rv = bson.RawValue{Type: bson.TypeNull}
	}
	return rawValue{rv: rv}, true, nil
}

// setDoc is the $set body; it rewrites all three fields in one update.
func setDoc(rec docstore.Record) bson.D {
	var exp any // nil => BSON null => no TTL
	if rec.ExpiresAt != nil {
		exp = *rec.ExpiresAt
	}
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: fieldKey, Value: rec.Key},
		{Key: fieldValue, Value: rec.Value},
		{Key: fieldExpiresAt, Value: exp},
	}}}
}

func (c *Collection) Upsert(ctx context.Context, rec docstore.Record) (docstore.WriteResult, error) {
	res, err := c.c.UpdateOne(ctx, keyFilter(rec.Key), setDoc(rec), options.Update().SetUpsert(true))
	if err != nil {
		return docstore.WriteResult{}, err
	}
	return docstore.WriteResult{
		Acknowledged: true,
		Matched:      res.MatchedCount,
		Modified:     res.ModifiedCount,
		Upserted:     res.UpsertedCount,
	}, nil
}

func (c *Collection) Delete(ctx context.Context, key string) (bool, error) {
	res, err := c.c.DeleteOne(ctx, keyFilter(key))
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// prefixFilter matches keys starting with prefix literally.
func prefixFilter(prefix string) bson.D {
	if prefix == "" {
		return bson.D{}
	}
	return bson.D{{Key: fieldKey, Value: primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)}}}
}

func (c *Collection) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := c.c.DeleteMany(ctx, prefixFilter(prefix))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// IndexModels returns the unique key index and the zero-threshold TTL index.
func IndexModels() []gomongo.IndexModel {
	return []gomongo.IndexModel{
		{
			Keys:    bson.D{{Key: fieldKey, Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: fieldExpiresAt, Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
}

func (c *Collection) EnsureIndexes(ctx context.Context) error {
	if _, err := c.c.Indexes().CreateMany(ctx, IndexModels()); err != nil {
		return fmt.Errorf("mongo create indexes: %w", err)
	}
	return nil
}
