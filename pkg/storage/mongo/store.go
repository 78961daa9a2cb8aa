// Package mongo implements the hookbox document store on MongoDB.
package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hookbox/hookbox/pkg/config"
	"github.com/hookbox/hookbox/pkg/storage"
)

// Store implements storage.Store backed by a MongoDB database.
type Store struct {
	client *mongo.Client
	emails *mongo.Collection
	users  *mongo.Collection
	sent   *mongo.Collection
	drafts *mongo.Collection
}

var _ storage.Store = &Store{}

// New connects to the configured MongoDB instance and verifies the
// connection with a ping.
func New(c config.Root) (storage.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.Mongo.Timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.Mongo.URI()))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	log.Info().Str("module", "storage").Str("host", c.Mongo.Host).
		Str("db", c.Mongo.Database).Msg("Connected to MongoDB")
	db := client.Database(c.Mongo.Database)
	return &Store{
		client: client,
		emails: db.Collection("emails"),
		users:  db.Collection("users"),
		sent:   db.Collection("sent"),
		drafts: db.Collection("drafts"),
	}, nil
}

// oid parses a hex document identifier. Unparseable input is treated the
// same as an identifier that matches nothing.
func oid(id string) (primitive.ObjectID, error) {
	o, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, storage.ErrNotExist
	}
	return o, nil
}

// AddEmail inserts an inbound email document.
func (s *Store) AddEmail(ctx context.Context, email *storage.Email) (string, error) {
	if email.ID.IsZero() {
		email.ID = primitive.NewObjectID()
	}
	if _, err := s.emails.InsertOne(ctx, email); err != nil {
		return "", err
	}
	return email.ID.Hex(), nil
}

// GetEmail fetches a single inbound email by identifier.
func (s *Store) GetEmail(ctx context.Context, id string) (*storage.Email, error) {
	o, err := oid(id)
	if err != nil {
		return nil, err
	}
	email := &storage.Email{}
	err = s.emails.FindOne(ctx, bson.M{"_id": o}).Decode(email)
	if err == mongo.ErrNoDocuments {
		return nil, storage.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return email, nil
}

// QueryEmails returns a page of inbound emails, newest first, plus the total
// count of documents matching the filter.
func (s *Store) QueryEmails(ctx context.Context, q storage.EmailQuery) ([]*storage.Email, int64, error) {
	filter := emailFilter(q)
	total, err := s.emails.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}})
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := s.emails.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var emails []*storage.Email
	if err := cur.All(ctx, &emails); err != nil {
		return nil, 0, err
	}
	return emails, total, nil
}

// MarkProcessed flips the read flag on an inbound email.
func (s *Store) MarkProcessed(ctx context.Context, id string) error {
	o, err := oid(id)
	if err != nil {
		return err
	}
	res, err := s.emails.UpdateOne(ctx, bson.M{"_id": o},
		bson.M{"$set": bson.M{"processed": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotExist
	}
	return nil
}

// AddUser inserts a user document. The caller is responsible for checking
// address uniqueness first; the collections carry no unique indexes.
func (s *Store) AddUser(ctx context.Context, user *storage.User) (string, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(user.Email)
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return "", err
	}
	return user.ID.Hex(), nil
}

// GetUser fetches a user by identifier.
func (s *Store) GetUser(ctx context.Context, id string) (*storage.User, error) {
	o, err := oid(id)
	if err != nil {
		return nil, err
	}
	user := &storage.User{}
	err = s.users.FindOne(ctx, bson.M{"_id": o}).Decode(user)
	if err == mongo.ErrNoDocuments {
		return nil, storage.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail fetches a user by primary address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	user := &storage.User{}
	err := s.users.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(user)
	if err == mongo.ErrNoDocuments {
		return nil, storage.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser replaces a user document.
func (s *Store) UpdateUser(ctx context.Context, user *storage.User) error {
	user.Email = strings.ToLower(user.Email)
	res, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotExist
	}
	return nil
}

// DeleteUser removes a user document.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	o, err := oid(id)
	if err != nil {
		return err
	}
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": o})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotExist
	}
	return nil
}

// ListUsers returns all users ordered by address.
func (s *Store) ListUsers(ctx context.Context) ([]*storage.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "email", Value: 1}})
	cur, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var users []*storage.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CountUsers returns the number of user documents.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{})
}

// AddSent stores a copy of an outbound message.
func (s *Store) AddSent(ctx context.Context, sent *storage.SentEmail) (string, error) {
	if sent.ID.IsZero() {
		sent.ID = primitive.NewObjectID()
	}
	if _, err := s.sent.InsertOne(ctx, sent); err != nil {
		return "", err
	}
	return sent.ID.Hex(), nil
}

// GetSent fetches a sent email by identifier.
func (s *Store) GetSent(ctx context.Context, id string) (*storage.SentEmail, error) {
	o, err := oid(id)
	if err != nil {
		return nil, err
	}
	sent := &storage.SentEmail{}
	err = s.sent.FindOne(ctx, bson.M{"_id": o}).Decode(sent)
	if err == mongo.ErrNoDocuments {
		return nil, storage.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return sent, nil
}

// QuerySent returns a page of the user's sent mail, newest first.
func (s *Store) QuerySent(ctx context.Context, q storage.OwnedQuery) ([]*storage.SentEmail, int64, error) {
	filter := ownedFilter(q)
	total, err := s.sent.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: -1}})
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := s.sent.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var sent []*storage.SentEmail
	if err := cur.All(ctx, &sent); err != nil {
		return nil, 0, err
	}
	return sent, total, nil
}

// AddDraft stores a new draft.
func (s *Store) AddDraft(ctx context.Context, draft *storage.Draft) (string, error) {
	if draft.ID.IsZero() {
		draft.ID = primitive.NewObjectID()
	}
	if _, err := s.drafts.InsertOne(ctx, draft); err != nil {
		return "", err
	}
	return draft.ID.Hex(), nil
}

// GetDraft fetches a draft by identifier.
func (s *Store) GetDraft(ctx context.Context, id string) (*storage.Draft, error) {
	o, err := oid(id)
	if err != nil {
		return nil, err
	}
	draft := &storage.Draft{}
	err = s.drafts.FindOne(ctx, bson.M{"_id": o}).Decode(draft)
	if err == mongo.ErrNoDocuments {
		return nil, storage.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// UpdateDraft replaces a draft document in place.
func (s *Store) UpdateDraft(ctx context.Context, draft *storage.Draft) error {
	res, err := s.drafts.ReplaceOne(ctx, bson.M{"_id": draft.ID}, draft)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotExist
	}
	return nil
}

// DeleteDraft removes a draft.
func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	o, err := oid(id)
	if err != nil {
		return err
	}
	res, err := s.drafts.DeleteOne(ctx, bson.M{"_id": o})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotExist
	}
	return nil
}

// QueryDrafts returns a page of the user's drafts, most recently updated
// first.
func (s *Store) QueryDrafts(ctx context.Context, q storage.OwnedQuery) ([]*storage.Draft, int64, error) {
	filter := ownedFilter(q)
	total, err := s.drafts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := s.drafts.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var drafts []*storage.Draft
	if err := cur.All(ctx, &drafts); err != nil {
		return nil, 0, err
	}
	return drafts, total, nil
}

// Ping verifies the MongoDB connection for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
