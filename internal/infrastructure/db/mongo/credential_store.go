package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vetcare/identity-api/internal/core/domain"
)

const (
	collectionUsers    = "users"
	collectionSessions = "sessions"
)

// CredentialStore implements ports.CredentialStore on two collections: users
// and sessions. Sessions reference their owner by user_id.
type CredentialStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	sessions *mongo.Collection
}

func NewCredentialStore(client *mongo.Client, db *mongo.Database) *CredentialStore {
	return &CredentialStore{
		client:   client,
		users:    db.Collection(collectionUsers),
		sessions: db.Collection(collectionSessions),
	}
}

// EnsureIndexes creates the unique email and token indexes and the user_id
// lookup index.
func (r *CredentialStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("ux_users_email"),
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err := r.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("ux_sessions_token"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("ix_sessions_user_id"),
		},
	})
	if err != nil {
		return fmt.Errorf("sessions indexes: %w", err)
	}
	return nil
}

func (r *CredentialStore) CreateUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.users.InsertOne(ctx, toUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *CredentialStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	user, err := r.findUser(ctx, bson.M{"email": domain.NormalizeEmail(email)})
	if err != nil {
		return nil, err
	}
	if err := r.loadSessions(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *CredentialStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	user, err := r.findUser(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if err := r.loadSessions(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *CredentialStore) FindSessionByToken(ctx context.Context, token string) (*domain.Session, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc sessionDocument
	if err := r.sessions.FindOne(ctx, bson.M{"token": token}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, domain.ErrRecordNotFound
		}
		return nil, nil, fmt.Errorf("find session: %w", err)
	}

	user, err := r.findUser(ctx, bson.M{"_id": doc.UserID})
	if err != nil {
		return nil, nil, err
	}
	if err := r.loadSessions(ctx, user); err != nil {
		return nil, nil, err
	}
	for _, s := range user.Sessions() {
		if s.ID == doc.ID {
			return s, user, nil
		}
	}
	// Deleted between the two reads.
	return nil, nil, domain.ErrRecordNotFound
}

// Commit applies changes in a single multi-document transaction.
func (r *CredentialStore) Commit(ctx context.Context, changes *domain.ChangeSet) error {
	if changes == nil || changes.Empty() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	txn, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer txn.EndSession(ctx)

	_, err = txn.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, r.apply(sc, changes)
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("commit: %w", domain.ErrDuplicateKey)
		}
		return err
	}

	for _, s := range changes.CreatedSessions {
		s.Version = 1
	}
	for _, s := range changes.UpdatedSessions {
		s.Version++
	}
	return nil
}

func (r *CredentialStore) apply(ctx mongo.SessionContext, changes *domain.ChangeSet) error {
	for _, s := range changes.CreatedSessions {
		if _, err := r.sessions.InsertOne(ctx, toSessionDocument(s, 1)); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}

	for _, s := range changes.UpdatedSessions {
		res, err := r.sessions.UpdateOne(ctx,
			bson.M{"_id": s.ID, "version": s.Version},
			bson.M{
				"$set": bson.M{"token": s.Token, "expires_at": s.ExpiresAt.UTC()},
				"$inc": bson.M{"version": 1},
			},
		)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("session %s: %w", s.ID, domain.ErrConcurrentUpdate)
		}
	}

	for _, s := range changes.DeletedSessions {
		res, err := r.sessions.DeleteOne(ctx, bson.M{"_id": s.ID, "version": s.Version})
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("session %s: %w", s.ID, domain.ErrConcurrentUpdate)
		}
	}

	for _, u := range changes.UpdatedUsers {
		doc := toUserDocument(u)
		res, err := r.users.UpdateOne(ctx,
			bson.M{"_id": u.ID},
			bson.M{"$set": bson.M{
				"first_name":    doc.FirstName,
				"last_name":     doc.LastName,
				"password_hash": doc.PasswordHash,
				"role":          doc.Role,
				"is_active":     doc.IsActive,
				"updated_at":    doc.UpdatedAt,
			}},
		)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("user %s: %w", u.ID, domain.ErrRecordNotFound)
		}
	}
	return nil
}

func (r *CredentialStore) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CredentialStore) loadSessions(ctx context.Context, user *domain.User) error {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.sessions.Find(ctx, bson.M{"user_id": user.ID}, opts)
	if err != nil {
		return fmt.Errorf("find sessions: %w", err)
	}

	var docs []sessionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return fmt.Errorf("decode sessions: %w", err)
	}

	sessions := make([]*domain.Session, 0, len(docs))
	for _, d := range docs {
		sessions = append(sessions, d.toDomain())
	}
	user.LoadSessions(sessions)
	return nil
}
