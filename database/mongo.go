package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ecochain/config"
	"ecochain/logger"
	"ecochain/metrics"
	pickupModel "ecochain/models/pickup"
	userModel "ecochain/models/user"
	"ecochain/store"
	"ecochain/types"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionPickups      = "scheduled_pickups"
	collectionUsers        = "users"
	collectionStatusEvents = "pickup_status_events"
	collectionLogs         = "logs"
)

// MongoURI prefers MONGO_URL and falls back to the individual settings.
func MongoURI(cfg config.MongoConfig) string {
	if cfg.URI != "" {
		return cfg.URI
	}
	if cfg.Username != "" && cfg.Password != "" {
		uri := fmt.Sprintf("mongodb://%s:%s@%s:%s/%s",
			url.QueryEscape(cfg.Username), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Database)
		if authSource := strings.TrimSpace(cfg.AuthSource); authSource != "" {
			uri = fmt.Sprintf("%s?authSource=%s", uri, url.QueryEscape(authSource))
		}
		return uri
	}
	return fmt.Sprintf("mongodb://%s:%s/%s", cfg.Host, cfg.Port, cfg.Database)
}

// ConnectMongo connects and pings within ten seconds.
func ConnectMongo(cfg config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(MongoURI(cfg)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Success(fmt.Sprintf("Successfully connected to MongoDB database %s", cfg.Database))
	return client, nil
}

// MongoStore implements store.Store on MongoDB.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore wraps a connected client and ensures the indexes exist.
func NewMongoStore(ctx context.Context, client *mongo.Client, database string) (*MongoStore, error) {
	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_type", Value: 1}}},
		},
		collectionPickups: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "pincode", Value: 1}}},
			{Keys: bson.D{{Key: "assigned_to", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "generator_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collectionStatusEvents: {
			{Keys: bson.D{{Key: "pickup_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}
	logger.Success("All MongoDB indexes created successfully")
	return nil
}

func (s *MongoStore) CreatePickup(ctx context.Context, p *pickupModel.Pickup) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	ts := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = ts
	}
	p.UpdatedAt = ts
	if _, err := s.db.Collection(collectionPickups).InsertOne(ctx, p); err != nil {
		return s.translate("create_pickup", err)
	}
	return nil
}

func (s *MongoStore) GetPickup(ctx context.Context, id string) (*pickupModel.Pickup, error) {
	var p pickupModel.Pickup
	if err := s.db.Collection(collectionPickups).FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, s.translate("get_pickup", err)
	}
	return &p, nil
}

// UpdatePickup filters on id, status and null columns so the write is a
// single-document compare-and-swap.
func (s *MongoStore) UpdatePickup(ctx context.Context, id string, pre store.Precondition, fields store.Fields) error {
	filter := guardFilter(id, pre)

	set := bson.M{}
	for col, value := range fields {
		set[col] = value
	}
	set[pickupModel.FieldUpdatedAt] = time.Now().UTC()

	coll := s.db.Collection(collectionPickups)
	res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return s.translate("update_pickup", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	count, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return s.translate("update_pickup", err)
	}
	if count == 0 {
		return fmt.Errorf("pickup %s: %w", id, store.ErrNotFound)
	}
	return fmt.Errorf("pickup %s: %w", id, store.ErrPreconditionFailed)
}

// guardFilter matches the record only while the precondition holds. A nil
// value matches both null and missing fields.
func guardFilter(id string, pre store.Precondition) bson.M {
	filter := bson.M{"_id": id}
	if pre.Status != "" {
		filter["status"] = string(pre.Status)
	}
	for _, col := range pre.Unset {
		filter[col] = nil
	}
	return filter
}

func (s *MongoStore) ListPickups(ctx context.Context, filter store.PickupFilter) ([]pickupModel.Pickup, error) {
	query := bson.M{}
	if filter.GeneratorID != "" {
		query["generator_id"] = filter.GeneratorID
	}
	if filter.AssignedTo != "" {
		query["assigned_to"] = filter.AssignedTo
	}
	if filter.Pincode != "" {
		query["pincode"] = filter.Pincode
	}
	status := bson.M{}
	if filter.ExcludeStatus != "" {
		status["$ne"] = filter.ExcludeStatus
	}
	if len(filter.Statuses) > 0 {
		status["$in"] = filter.Statuses
	}
	if len(status) > 0 {
		query["status"] = status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.db.Collection(collectionPickups).Find(ctx, query, opts)
	if err != nil {
		return nil, s.translate("list_pickups", err)
	}
	defer cursor.Close(ctx)

	pickups := make([]pickupModel.Pickup, 0)
	if err := cursor.All(ctx, &pickups); err != nil {
		return nil, s.translate("list_pickups", err)
	}
	return pickups, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u *userModel.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(u.Email)
	ts := time.Now().UTC()
	u.CreatedAt = ts
	u.UpdatedAt = ts
	if _, err := s.db.Collection(collectionUsers).InsertOne(ctx, u); err != nil {
		return s.translate("create_user", err)
	}
	return nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*userModel.User, error) {
	var u userModel.User
	if err := s.db.Collection(collectionUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, s.translate("get_user", err)
	}
	return &u, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*userModel.User, error) {
	var u userModel.User
	err := s.db.Collection(collectionUsers).FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&u)
	if err != nil {
		return nil, s.translate("get_user_by_email", err)
	}
	return &u, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, id string, fields store.Fields) error {
	set := bson.M{}
	for col, value := range fields {
		switch col {
		case userModel.FieldIsAvailable, userModel.FieldPincode:
			set[col] = value
		default:
			return fmt.Errorf("unknown user field %q", col)
		}
	}
	set[userModel.FieldUpdatedAt] = time.Now().UTC()

	res, err := s.db.Collection(collectionUsers).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return s.translate("update_user", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) IncrementPoints(ctx context.Context, userID string, delta int) error {
	update := bson.M{
		"$inc": bson.M{"points": delta},
		"$set": bson.M{userModel.FieldUpdatedAt: time.Now().UTC()},
	}
	res, err := s.db.Collection(collectionUsers).UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return s.translate("increment_points", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) AppendStatusEvent(ctx context.Context, ev *pickupModel.StatusEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.Collection(collectionStatusEvents).InsertOne(ctx, ev); err != nil {
		return s.translate("append_status_event", err)
	}
	return nil
}

// SaveLog writes one request log document.
func (s *MongoStore) SaveLog(ctx context.Context, entry types.LogEntry) error {
	doc := bson.M{
		"method":           entry.Method,
		"url":              entry.URL,
		"user_id":          entry.UserID,
		"request_body":     entry.RequestBody,
		"request_headers":  entry.RequestHeaders,
		"response_body":    entry.ResponseBody,
		"response_headers": entry.ResponseHeaders,
		"status_code":      entry.StatusCode,
		"latency_ms":       entry.LatencyMs,
		"created_at":       entry.CreatedAt,
	}
	_, err := s.db.Collection(collectionLogs).InsertOne(ctx, doc)
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%v: %w", err, store.ErrUnavailable)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) translate(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	default:
		metrics.StoreErrors.WithLabelValues(op).Inc()
		return fmt.Errorf("%s: %v: %w", op, err, store.ErrUnavailable)
	}
}
