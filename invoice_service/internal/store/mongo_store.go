package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	ierrors "github.com/abgdnv/stockbook/invoice_service/internal/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	colCategories = "categories"
	colProducts   = "products"
	colInvoices   = "invoices"
	colCounters   = "counters"
)

// MongoStore implements Store on MongoDB.
type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	mongoRepos
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore binds the store to database. With transactions enabled WithTx runs inside a
// session transaction, which needs a replica set.
func NewMongoStore(client *mongo.Client, database string, transactions bool) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client:       client,
		db:           db,
		transactions: transactions,
		mongoRepos:   mongoRepos{db: db},
	}
}

// EnsureIndexes creates the unique index on the integer id of every collection and the order date index.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	for _, col := range []string{colCategories, colProducts, colInvoices} {
		_, err := m.db.Collection(col).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("failed to create id index on %s: %w", col, err)
		}
	}
	_, err := m.db.Collection(colInvoices).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "orderDate", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create orderDate index: %w", err)
	}
	return nil
}

func (m *MongoStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error {
	if !m.transactions {
		return fn(ctx, m.mongoRepos)
	}

	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: %w", ierrors.ErrTransactionBegin, err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, fn(txCtx, m.mongoRepos)
	})
	return err
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type mongoRepos struct {
	db *mongo.Database
}

func (r mongoRepos) Categories() CategoryRepository {
	return &mongoRepo[Category, categoryDoc, CategoryPatch]{
		col: r.db.Collection(colCategories), what: "category",
		toDoc: toCategoryDoc, fromDoc: fromCategoryDoc, set: categorySet,
	}
}

func (r mongoRepos) Products() ProductRepository {
	return &mongoProducts{mongoRepo[Product, productDoc, ProductPatch]{
		col: r.db.Collection(colProducts), what: "product",
		toDoc: toProductDoc, fromDoc: fromProductDoc, set: productSet,
	}}
}

func (r mongoRepos) Invoices() InvoiceRepository {
	return &mongoInvoices{mongoRepo[Invoice, invoiceDoc, InvoicePatch]{
		col: r.db.Collection(colInvoices), what: "invoice",
		toDoc: toInvoiceDoc, fromDoc: fromInvoiceDoc, set: invoiceSet,
	}}
}

func (r mongoRepos) Counters() CounterRepository {
	return &mongoCounters{col: r.db.Collection(colCounters)}
}

// mongoRepo maps records of type T to documents of type D and patches of type P to $set updates.
type mongoRepo[T any, D any, P any] struct {
	col     *mongo.Collection
	what    string
	toDoc   func(T) (D, error)
	fromDoc func(D) (T, error)
	set     func(P) (bson.D, error)
}

func byID(id int64) bson.D {
	return bson.D{{Key: "id", Value: id}}
}

func (r *mongoRepo[T, D, P]) find(ctx context.Context, filter any) ([]T, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find %s records: %w", r.what, err)
	}
	var docs []D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s records: %w", r.what, err)
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		rec, err := r.fromDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *mongoRepo[T, D, P]) decodeOne(res *mongo.SingleResult) (*T, error) {
	var doc D
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ierrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", r.what, err)
	}
	rec, err := r.fromDoc(doc)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *mongoRepo[T, D, P]) FindAll(ctx context.Context) ([]T, error) {
	return r.find(ctx, bson.D{})
}

func (r *mongoRepo[T, D, P]) FindByID(ctx context.Context, id int64) (*T, error) {
	return r.decodeOne(r.col.FindOne(ctx, byID(id)))
}

func (r *mongoRepo[T, D, P]) Insert(ctx context.Context, rec T) (*T, error) {
	doc, err := r.toDoc(rec)
	if err != nil {
		return nil, err
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r.what, err)
	}
	stored, err := r.fromDoc(doc)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *mongoRepo[T, D, P]) Update(ctx context.Context, id int64, patch P) (*T, error) {
	set, err := r.set(patch)
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}
	return r.findOneAndUpdate(ctx, id, bson.D{{Key: "$set", Value: set}})
}

func (r *mongoRepo[T, D, P]) findOneAndUpdate(ctx context.Context, id int64, update bson.D) (*T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return r.decodeOne(r.col.FindOneAndUpdate(ctx, byID(id), update, opts))
}

func (r *mongoRepo[T, D, P]) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.col.DeleteOne(ctx, byID(id))
	if err != nil {
		return false, fmt.Errorf("failed to delete %s %d: %w", r.what, id, err)
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoRepo[T, D, P]) Count(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s records: %w", r.what, err)
	}
	return n, nil
}

type mongoProducts struct {
	mongoRepo[Product, productDoc, ProductPatch]
}

func (p *mongoProducts) AdjustStock(ctx context.Context, id int64, delta int64) (*Product, error) {
	return p.findOneAndUpdate(ctx, id, bson.D{{Key: "$inc", Value: bson.D{{Key: "stockQuantity", Value: delta}}}})
}

type mongoInvoices struct {
	mongoRepo[Invoice, invoiceDoc, InvoicePatch]
}

func (i *mongoInvoices) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$totalAmount"}}},
		}}},
	}
	cur, err := i.col.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum invoice totals: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	if !cur.Next(ctx) {
		return decimal.Zero, cur.Err()
	}
	var result struct {
		Total bson.Decimal128 `bson:"total"`
	}
	if err := cur.Decode(&result); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode invoice total: %w", err)
	}
	return fromDecimal128(result.Total)
}

func (i *mongoInvoices) FindByOrderDate(ctx context.Context, from, to time.Time) ([]Invoice, error) {
	return i.find(ctx, bson.D{{Key: "orderDate", Value: bson.D{
		{Key: "$gte", Value: from},
		{Key: "$lt", Value: to},
	}}})
}

type mongoCounters struct {
	col *mongo.Collection
}

func (c *mongoCounters) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc counterDoc
	err := c.col.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: name}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate from counter %s: %w", name, err)
	}
	return doc.Value, nil
}

func (c *mongoCounters) Set(ctx context.Context, name string, value int64) error {
	_, err := c.col.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: name}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "value", Value: value}}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set counter %s: %w", name, err)
	}
	return nil
}

func (c *mongoCounters) Get(ctx context.Context, name string) (int64, error) {
	var doc counterDoc
	err := c.col.FindOne(ctx, bson.D{{Key: "_id", Value: name}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", name, err)
	}
	return doc.Value, nil
}

func (c *mongoCounters) All(ctx context.Context) (map[string]int64, error) {
	cur, err := c.col.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to read counters: %w", err)
	}
	var docs []counterDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode counters: %w", err)
	}
	counters := make(map[string]int64, len(docs))
	for _, doc := range docs {
		counters[doc.Name] = doc.Value
	}
	return counters, nil
}
