package store

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/stockbook/pkg/bootstrap"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const mongoImg = "mongo:7.0"

// MongoStoreSuite runs the store contract against a single node replica set so transactions work.
type MongoStoreSuite struct {
	suite.Suite
	container *mongodb.MongoDBContainer
	client    *mongo.Client
	store     *MongoStore
	logger    *slog.Logger
	ctx       context.Context
}

func (s *MongoStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.container, err = mongodb.Run(s.ctx, mongoImg, mongodb.WithReplicaSet("rs0"))
	require.NoError(s.T(), err, "Failed to run MongoDB container")

	uri, err := s.container.ConnectionString(s.ctx)
	require.NoError(s.T(), err)

	s.client, err = bootstrap.NewMongoClient(s.ctx, uri, 30*time.Second)
	require.NoError(s.T(), err, "Failed to connect to MongoDB")

	s.store = NewMongoStore(s.client, "stockbook_test", true)
	s.logger.Info("Initialization complete for MongoStoreSuite")
}

func (s *MongoStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Disconnect(s.ctx)
	}
	if s.container != nil {
		if err := testcontainers.TerminateContainer(s.container); err != nil {
			s.logger.Warn("failed to terminate MongoDB container", "error", err)
		}
	}
}

func (s *MongoStoreSuite) reset(t *testing.T) Store {
	for _, col := range []string{colCategories, colProducts, colInvoices, colCounters} {
		_, err := s.store.db.Collection(col).DeleteMany(s.ctx, bson.D{})
		require.NoError(t, err)
	}
	require.NoError(t, s.store.EnsureIndexes(s.ctx))
	return s.store
}

func (s *MongoStoreSuite) TestContract() {
	runStoreContract(s.T(), s.reset, contractOptions{atomicTx: true})
}

func (s *MongoStoreSuite) TestUniqueIDIndex() {
	st := s.reset(s.T())
	_, err := st.Categories().Insert(s.ctx, Category{ID: 1, Name: "Drinks"})
	s.Require().NoError(err)

	_, err = st.Categories().Insert(s.ctx, Category{ID: 1, Name: "Duplicate"})

	s.Require().Error(err)
	s.True(mongo.IsDuplicateKeyError(err))
}

func (s *MongoStoreSuite) TestWithoutTransactionsRunsSequentially() {
	s.reset(s.T())
	plain := NewMongoStore(s.client, "stockbook_test", false)

	err := plain.WithTx(s.ctx, func(ctx context.Context, repos Repos) error {
		_, err := repos.Categories().Insert(ctx, Category{ID: 5, Name: "Bakery"})
		return err
	})

	s.Require().NoError(err)
	found, err := plain.Categories().FindByID(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal("Bakery", found.Name)
}

func TestMongoStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(MongoStoreSuite))
}
