package mongo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unkn0wn-root/keyvmongo"
	"github.com/unkn0wn-root/keyvmongo/docstore"
	"github.com/unkn0wn-root/keyvmongo/docstore/mongo"
)

// TestStoreOverDriver runs the store against the driver's mock deployment.
func TestStoreOverDriver(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("set then get", func(mt *mtest.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(), // createIndexes
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 1},
				bson.E{Key: "nModified", Value: 0},
				bson.E{Key: "upserted", Value: bson.A{
					bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: primitive.NewObjectID()}},
				}},
			),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "key", Value: "greeting"},
				{Key: "value", Value: "hello"},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		db, err := mongo.Wrap(mt.DB)
		require.NoError(mt, err)
		s, err := keyvmongo.New[string](keyvmongo.Options[string]{
			Source:       keyvmongo.Handle{DB: db},
			Collection:   mt.Coll.Name(),
			AwaitIndexes: true,
			OnFailure:    func(err error) { mt.Errorf("connection failed: %v", err) },
		})
		require.NoError(mt, err)
		defer s.Close(ctx)

		require.NoError(mt, s.Ready(ctx))
		assert.Equal(mt, keyvmongo.StateReady, s.State())

		res, err := s.Set(ctx, "greeting", "hello", time.Minute)
		require.NoError(mt, err)
		assert.Equal(mt, docstore.WriteResult{Acknowledged: true, Upserted: 1}, res)

		got, ok, err := s.Get(ctx, "greeting")
		require.NoError(mt, err)
		require.True(mt, ok)
		assert.Equal(mt, "hello", got)

		removed, err := s.Delete(ctx, "greeting")
		require.NoError(mt, err)
		assert.True(mt, removed)

		var names []string
		for _, evt := range mt.GetAllStartedEvents() {
			names = append(names, evt.CommandName)
		}
		assert.Equal(mt, []string{"createIndexes", "update", "find", "delete"}, names)
	})
}

func TestURLStrategyReportsUnreachableServer(t *testing.T) {
	failed := make(chan error, 1)
	s, err := keyvmongo.New[string](keyvmongo.Options[string]{
		Source: keyvmongo.URL{
			URI: "mongodb://127.0.0.1:1/keyv",
			ClientOptions: options.Client().
				SetConnectTimeout(100 * time.Millisecond).
				SetServerSelectionTimeout(200 * time.Millisecond),
		},
		OnFailure: func(err error) { failed <- err },
	})
	require.NoError(t, err)
	defer s.Close(context.Background())

	select {
	case err := <-failed:
		var cerr *keyvmongo.ConnectionError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "url", cerr.Strategy)
		assert.ErrorContains(t, err, "mongo ping")
	case <-time.After(10 * time.Second):
		t.Fatal("unreachable server never reported")
	}
	assert.Equal(t, keyvmongo.StateFailed, s.State())
}
