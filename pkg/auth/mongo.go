package auth

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tradingagents/authkit/pkg/config"
	autherrors "github.com/tradingagents/authkit/pkg/errors"
	"github.com/tradingagents/authkit/pkg/logger"
)

const mongoOpTimeout = 5 * time.Second

// MongoStore is the durable document-store backend. The connection is
// probed once at construction; a failed probe marks the store
// unavailable and every operation becomes a no-op returning failure or
// empty results. Username and email uniqueness is enforced here by
// unique indexes, making this store the source of truth for uniqueness
// under concurrency.
type MongoStore struct {
	client    *mongo.Client
	users     *mongo.Collection
	sessions  *mongo.Collection
	log       logger.Logger
	available bool
}

// NewMongoStore connects to the configured MongoDB deployment. A
// connection failure is logged and yields an unavailable store rather
// than an error, so the caller can fall back to the file store.
func NewMongoStore(cfg config.MongoConfig, log logger.Logger) *MongoStore {
	store := &MongoStore{log: log}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = mongoOpTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI()).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		log.Error("mongodb connection failed", err)
		return store
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Error("mongodb ping failed", err)
		return store
	}

	db := client.Database(cfg.Database)
	store.client = client
	store.users = db.Collection(cfg.UsersCollection)
	store.sessions = db.Collection(cfg.SessionsCollection)
	store.available = true

	store.ensureIndexes()

	log.Info("mongodb auth store connected", map[string]interface{}{"database": cfg.Database})
	return store
}

func (m *MongoStore) ensureIndexes() {
	ctx, cancel := m.opCtx()
	defer cancel()

	unique := options.Index().SetUnique(true)

	_, err := m.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "last_login", Value: 1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}}},
	})
	if err != nil {
		m.log.Warn("failed to create user indexes", map[string]interface{}{"error": err.Error()})
	}

	_, err = m.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	if err != nil {
		m.log.Warn("failed to create session indexes", map[string]interface{}{"error": err.Error()})
	}
}

func (m *MongoStore) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), mongoOpTimeout)
}

// Available reports whether the connectivity probe succeeded.
func (m *MongoStore) Available() bool {
	return m != nil && m.available
}

// Close disconnects from the deployment.
func (m *MongoStore) Close() error {
	if !m.available {
		return nil
	}
	ctx, cancel := m.opCtx()
	defer cancel()
	m.available = false
	return m.client.Disconnect(ctx)
}

// SaveUser inserts or replaces the record keyed by username.
func (m *MongoStore) SaveUser(u *User) error {
	if !m.available {
		return autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	_, err := m.users.ReplaceOne(ctx,
		bson.M{"username": u.Username}, u,
		options.Replace().SetUpsert(true))
	if err != nil {
		// The upsert is keyed by username, so a duplicate key here can
		// only come from the unique email index.
		if mongo.IsDuplicateKeyError(err) {
			return autherrors.NewDuplicateEmail().WithCause(err)
		}
		m.log.Error("failed to save user", err, map[string]interface{}{"username": u.Username})
		return autherrors.NewStorageUnavailable(err)
	}
	return nil
}

// LoadUser returns the record for username, or (nil, nil) when absent.
func (m *MongoStore) LoadUser(username string) (*User, error) {
	if !m.available {
		return nil, autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	var u User
	err := m.users.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		m.log.Error("failed to load user", err, map[string]interface{}{"username": username})
		return nil, autherrors.NewStorageUnavailable(err)
	}
	return &u, nil
}

// LoadAllUsers returns every user record keyed by username.
func (m *MongoStore) LoadAllUsers() (map[string]*User, error) {
	if !m.available {
		return nil, autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	cursor, err := m.users.Find(ctx, bson.M{})
	if err != nil {
		m.log.Error("failed to load users", err)
		return nil, autherrors.NewStorageUnavailable(err)
	}
	defer cursor.Close(ctx)

	users := make(map[string]*User)
	for cursor.Next(ctx) {
		var u User
		if err := cursor.Decode(&u); err != nil {
			m.log.Error("failed to decode user document", err)
			continue
		}
		users[u.Username] = &u
	}
	if err := cursor.Err(); err != nil {
		return nil, autherrors.NewStorageUnavailable(err)
	}
	return users, nil
}

// UpdateUser replaces an existing record; absent users are an error.
func (m *MongoStore) UpdateUser(u *User) error {
	if !m.available {
		return autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	result, err := m.users.ReplaceOne(ctx, bson.M{"username": u.Username}, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return autherrors.NewDuplicateEmail().WithCause(err)
		}
		m.log.Error("failed to update user", err, map[string]interface{}{"username": u.Username})
		return autherrors.NewStorageUnavailable(err)
	}
	if result.MatchedCount == 0 {
		return autherrors.New(autherrors.ErrCodeNotFound, "user not found")
	}
	return nil
}

// DeleteUser removes the user and all sessions bound to it.
func (m *MongoStore) DeleteUser(username string) error {
	if !m.available {
		return autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	result, err := m.users.DeleteOne(ctx, bson.M{"username": username})
	if err != nil {
		m.log.Error("failed to delete user", err, map[string]interface{}{"username": username})
		return autherrors.NewStorageUnavailable(err)
	}
	if result.DeletedCount == 0 {
		return autherrors.New(autherrors.ErrCodeNotFound, "user not found")
	}

	if _, err := m.sessions.DeleteMany(ctx, bson.M{"username": username}); err != nil {
		m.log.Error("failed to delete user sessions", err, map[string]interface{}{"username": username})
	}
	return nil
}

// SaveSession inserts or replaces the record keyed by token.
func (m *MongoStore) SaveSession(s *Session) error {
	if !m.available {
		return autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	_, err := m.sessions.ReplaceOne(ctx,
		bson.M{"token": s.Token}, s,
		options.Replace().SetUpsert(true))
	if err != nil {
		m.log.Error("failed to save session", err)
		return autherrors.NewStorageUnavailable(err)
	}
	return nil
}

// LoadSession returns the session for token, or (nil, nil) when absent.
func (m *MongoStore) LoadSession(token string) (*Session, error) {
	if !m.available {
		return nil, autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	var s Session
	err := m.sessions.FindOne(ctx, bson.M{"token": token}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		m.log.Error("failed to load session", err)
		return nil, autherrors.NewStorageUnavailable(err)
	}
	return &s, nil
}

// LoadAllSessions returns every session record keyed by token.
func (m *MongoStore) LoadAllSessions() (map[string]*Session, error) {
	if !m.available {
		return nil, autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	cursor, err := m.sessions.Find(ctx, bson.M{})
	if err != nil {
		m.log.Error("failed to load sessions", err)
		return nil, autherrors.NewStorageUnavailable(err)
	}
	defer cursor.Close(ctx)

	sessions := make(map[string]*Session)
	for cursor.Next(ctx) {
		var s Session
		if err := cursor.Decode(&s); err != nil {
			m.log.Error("failed to decode session document", err)
			continue
		}
		sessions[s.Token] = &s
	}
	if err := cursor.Err(); err != nil {
		return nil, autherrors.NewStorageUnavailable(err)
	}
	return sessions, nil
}

// DeleteSession removes the session; deleting an absent token is not an
// error.
func (m *MongoStore) DeleteSession(token string) error {
	if !m.available {
		return autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	if _, err := m.sessions.DeleteOne(ctx, bson.M{"token": token}); err != nil {
		m.log.Error("failed to delete session", err)
		return autherrors.NewStorageUnavailable(err)
	}
	return nil
}

// DeleteUserSessions removes every session bound to username and returns
// the count removed.
func (m *MongoStore) DeleteUserSessions(username string) (int64, error) {
	if !m.available {
		return 0, autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	result, err := m.sessions.DeleteMany(ctx, bson.M{"username": username})
	if err != nil {
		m.log.Error("failed to delete user sessions", err, map[string]interface{}{"username": username})
		return 0, autherrors.NewStorageUnavailable(err)
	}
	return result.DeletedCount, nil
}

// PurgeExpiredSessions removes every session whose expiry is before now.
func (m *MongoStore) PurgeExpiredSessions(now time.Time) (int64, error) {
	if !m.available {
		return 0, autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	result, err := m.sessions.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		m.log.Error("failed to purge expired sessions", err)
		return 0, autherrors.NewStorageUnavailable(err)
	}
	return result.DeletedCount, nil
}

// Stats counts users, live sessions at the given instant, and total
// sessions.
func (m *MongoStore) Stats(now time.Time) (*Stats, error) {
	if !m.available {
		return nil, autherrors.NewStorageUnavailable(nil)
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	totalUsers, err := m.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, autherrors.NewStorageUnavailable(err)
	}
	totalSessions, err := m.sessions.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, autherrors.NewStorageUnavailable(err)
	}
	activeSessions, err := m.sessions.CountDocuments(ctx, bson.M{"expires_at": bson.M{"$gte": now}})
	if err != nil {
		return nil, autherrors.NewStorageUnavailable(err)
	}

	return &Stats{
		TotalUsers:     totalUsers,
		ActiveSessions: activeSessions,
		TotalSessions:  totalSessions,
	}, nil
}
