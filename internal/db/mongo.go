package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	interf "github.com/glkeru/loyalty/ledger/internal/interfaces"
	model "github.com/glkeru/loyalty/ledger/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	lotsSequence    = "lots"
	versionSequence = "version"
)

// MongoStore keeps lots in a collection; ids come from a counters document that is
// incremented inside the same transaction as the insert. Requires a replica set.
type MongoStore struct {
	mgo      *mongo.Client
	lots     *mongo.Collection
	counters *mongo.Collection
}

func NewMongoStore(uri string, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if uri == "" {
		return nil, fmt.Errorf("env LEDGER_MONGO_URI is not set")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	db := client.Database(database)
	store := &MongoStore{client, db.Collection("lots"), db.Collection("counters")}

	_, err = store.lots.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "timestamp", Value: 1}, {Key: "id", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (m *MongoStore) Read(ctx context.Context, fn func(r interf.LotReader) error) error {
	return m.transaction(ctx, func(tx *mongoTx) error { return fn(tx) })
}

// Версия растет в той же транзакции; общий документ версии заодно дает конфликт записи
// между параллельными писателями
func (m *MongoStore) Write(ctx context.Context, fn func(tx interf.LotTx) error) error {
	return m.transaction(ctx, func(tx *mongoTx) error {
		if err := fn(tx); err != nil {
			return err
		}
		_, err := tx.next(versionSequence)
		return err
	})
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.mgo.Disconnect(ctx)
}

// fn может быть вызвана повторно при транзиентной ошибке транзакции
func (m *MongoStore) transaction(ctx context.Context, fn func(tx *mongoTx) error) error {
	session, err := m.mgo.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(&mongoTx{m, sc})
	})
	return err
}

// Операции идут через контекст сессии, переданный ctx только для совместимости с LotTx
type mongoTx struct {
	store *MongoStore
	sc    mongo.SessionContext
}

func lotsFilter(filter model.LotFilter) bson.M {
	f := bson.M{}
	if filter.Payer != "" {
		f["payer"] = filter.Payer
	}
	if filter.Until != nil {
		f["timestamp"] = bson.M{"$lte": *filter.Until}
	}
	if filter.Open {
		f["$expr"] = bson.M{"$lt": bson.A{"$used", "$points"}}
	}
	return f
}

func (t *mongoTx) Lots(_ context.Context, filter model.LotFilter) ([]model.Lot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "id", Value: 1}})
	cursor, err := t.store.lots.Find(t.sc, lotsFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(t.sc)

	var lots []model.Lot
	for cursor.Next(t.sc) {
		var lot model.Lot
		if err := cursor.Decode(&lot); err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, cursor.Err()
}

type sequence struct {
	Seq int64 `bson:"seq"`
}

// Следующее значение счетчика name
func (t *mongoTx) next(name string) (int64, error) {
	var seq sequence
	err := t.store.counters.FindOneAndUpdate(t.sc,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&seq)
	return seq.Seq, err
}

func (t *mongoTx) Version(_ context.Context) (int64, error) {
	var seq sequence
	err := t.store.counters.FindOne(t.sc, bson.M{"_id": versionSequence}).Decode(&seq)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	return seq.Seq, err
}

func (t *mongoTx) Insert(_ context.Context, lot model.Lot) (model.Lot, error) {
	id, err := t.next(lotsSequence)
	if err != nil {
		return lot, err
	}
	lot.ID = id
	lot.Used = 0
	if _, err = t.store.lots.InsertOne(t.sc, lot); err != nil {
		return lot, err
	}
	return lot, nil
}

func (t *mongoTx) Consume(_ context.Context, id int64, delta int64) error {
	if delta <= 0 {
		return fmt.Errorf("lot %d delta %d: %w", id, delta, model.ErrInternalConsistency)
	}
	filter := bson.M{
		"id":     id,
		"points": bson.M{"$gte": 0},
		"$expr":  bson.M{"$lte": bson.A{bson.M{"$add": bson.A{"$used", delta}}, "$points"}},
	}
	res, err := t.store.lots.UpdateOne(t.sc, filter, bson.M{"$inc": bson.M{"used": delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount != 1 {
		return fmt.Errorf("lot %d cannot take delta %d: %w", id, delta, model.ErrInternalConsistency)
	}
	return nil
}

func (t *mongoTx) Reset(_ context.Context) error {
	if _, err := t.store.lots.DeleteMany(t.sc, bson.M{}); err != nil {
		return err
	}
	_, err := t.store.counters.DeleteOne(t.sc, bson.M{"_id": lotsSequence})
	return err
}
