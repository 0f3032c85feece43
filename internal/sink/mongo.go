package sink

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/futterwatch/futterwatch/internal/config"
	"github.com/futterwatch/futterwatch/internal/offer"
)

// MongoSink persists offers to two collections: "products" holds one
// document per (externalId, site) and is upserted on every observation,
// "price_history" is append-only.
type MongoSink struct {
	client   *mongo.Client
	products *mongo.Collection
	history  *mongo.Collection
}

// NewMongoSink connects and prepares the unique index backing the upsert
// key.
func NewMongoSink(ctx context.Context, cfg config.Storage) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, &offer.SinkError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &offer.SinkError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	db := client.Database(cfg.Database)
	s := &MongoSink{
		client:   client,
		products: db.Collection("products"),
		history:  db.Collection("price_history"),
	}

	_, err = s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "externalId", Value: 1}, {Key: "site", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, &offer.SinkError{Backend: "mongodb", Err: fmt.Errorf("create index: %w", err)}
	}
	return s, nil
}

// StoreChunk upserts every offer's product document and appends one price
// observation each. UpsertedCount distinguishes first sightings from
// updates.
func (s *MongoSink) StoreChunk(ctx context.Context, chunk []offer.Offer) (StoreResult, error) {
	var res StoreResult
	now := time.Now().UTC()

	for i := range chunk {
		o := &chunk[i]
		filter := bson.M{"externalId": o.ExternalID, "site": string(o.Site)}
		update := bson.M{
			"$set": bson.M{
				"baseProductId":      o.BaseProductID,
				"name":               o.Name,
				"brand":              o.Brand,
				"size":               o.Size,
				"variantName":        o.VariantName,
				"currentPrice":       o.CurrentPrice,
				"originalPrice":      o.OriginalPrice,
				"isOnSale":           o.IsOnSale,
				"saleTag":            o.SaleTag,
				"weightGrams":        o.WeightGrams,
				"originalPricePerKg": o.OriginalPricePerKg,
				"reducedPricePerKg":  o.ReducedPricePerKg,
				"url":                o.URL,
				"updatedAt":          now,
			},
			"$setOnInsert": bson.M{"createdAt": now},
		}

		result, err := s.products.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err != nil {
			return res, &offer.SinkError{Backend: "mongodb", Err: fmt.Errorf("upsert %s: %w", o.ExternalID, err)}
		}
		res.NewProducts += int(result.UpsertedCount)

		_, err = s.history.InsertOne(ctx, bson.M{
			"externalId": o.ExternalID,
			"site":       string(o.Site),
			"price":      o.CurrentPrice,
			"pricePerKg": o.PricePerKg(),
			"isOnSale":   o.IsOnSale,
			"observedAt": now,
		})
		if err != nil {
			return res, &offer.SinkError{Backend: "mongodb", Err: fmt.Errorf("record price %s: %w", o.ExternalID, err)}
		}
	}
	return res, nil
}

func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
