package history

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"labchat/internal/app/message"
)

const mongoCollection = "chat_messages"

// MongoStore keeps history in a MongoDB collection, one document per message keyed by id.
type MongoStore struct {
	coll *mongo.Collection
}

// ConnectMongo connects to uri and verifies the deployment is reachable.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// NewMongoStore uses the chat_messages collection of database and ensures its room index.
func NewMongoStore(ctx context.Context, database *mongo.Database) (*MongoStore, error) {
	coll := database.Collection(mongoCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomKey", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName("room_created"),
	})
	if err != nil {
		return nil, fmt.Errorf("create room index: %w", err)
	}

	return &MongoStore{coll: coll}, nil
}

func (s *MongoStore) Append(ctx context.Context, msg message.Message) error {
	if _, err := s.coll.InsertOne(ctx, msg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert message %s: %w", msg.ID, err)
	}
	return nil
}

func (s *MongoStore) Recent(ctx context.Context, roomKey string, limit int) ([]message.Message, error) {
	if limit <= 0 {
		return []message.Message{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, bson.M{"roomKey": roomKey}, opts)
	if err != nil {
		return nil, fmt.Errorf("find recent messages: %w", err)
	}

	msgs := []message.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode recent messages: %w", err)
	}

	for i := range msgs {
		msgs[i].CreatedAt = msgs[i].CreatedAt.UTC()
	}
	slices.Reverse(msgs)
	return msgs, nil
}
