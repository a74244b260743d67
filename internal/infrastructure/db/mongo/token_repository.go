package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edu-platform/platform-api/internal/core/domain"
)

const collectionTokens = "auth_tokens"

// TokenRepository implements ports.TokenRepository using MongoDB.
type TokenRepository struct {
	coll *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{coll: db.Collection(collectionTokens)}
}

type tokenDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Key       string             `bson:"key"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Active    bool               `bson:"active"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
	User      *userDoc           `bson:"user,omitempty"`
}

func (d *tokenDoc) toDomain() *domain.Token {
	t := &domain.Token{
		ID:        d.ID.Hex(),
		Key:       d.Key,
		UserID:    d.UserID.Hex(),
		Active:    d.Active,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	if d.User != nil {
		t.User = d.User.toDomain()
	}
	return t
}

// oldestFirst orders a user's tokens so the first one is canonical.
var oldestFirst = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (r *TokenRepository) Insert(ctx context.Context, t *domain.Token) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	userID, err := primitive.ObjectIDFromHex(t.UserID)
	if err != nil {
		return fmt.Errorf("insert token: invalid user id %q", t.UserID)
	}

	doc := tokenDoc{
		ID:        primitive.NewObjectID(),
		Key:       t.Key,
		UserID:    userID,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateToken
		}
		return fmt.Errorf("insert token: %w", err)
	}

	t.ID = doc.ID.Hex()
	return nil
}

// FindByKey joins the owning user in the same round trip. A token whose user
// no longer exists is reported as not found.
func (r *TokenRepository) FindByKey(ctx context.Context, key string) (*domain.Token, error) {
	tokens, err := r.aggregate(ctx, bson.D{{Key: "key", Value: key}}, 1)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, domain.ErrTokenNotFound
	}
	return tokens[0], nil
}

func (r *TokenRepository) FindByUser(ctx context.Context, userID string) (*domain.Token, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, domain.ErrTokenNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc tokenDoc
	opts := options.FindOne().SetSort(oldestFirst)
	if err := r.coll.FindOne(ctx, bson.M{"user_id": oid}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TokenRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Token, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"user_id": oid}, options.Find().SetSort(oldestFirst))
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}

	var docs []tokenDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}

	out := make([]*domain.Token, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *TokenRepository) List(ctx context.Context) ([]*domain.Token, error) {
	return r.aggregate(ctx, bson.D{}, 0)
}

func (r *TokenRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, bson.M{"user_id": oid})
	if err != nil {
		return 0, fmt.Errorf("delete tokens: %w", err)
	}
	return res.DeletedCount, nil
}

// aggregate matches tokens and joins their owners from the users collection.
func (r *TokenRepository) aggregate(ctx context.Context, match bson.D, limit int64) ([]*domain.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: oldestFirst}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: collectionUsers},
			{Key: "localField", Value: "user_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "user"},
		}}},
		bson.D{{Key: "$unwind", Value: "$user"}},
	)

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("lookup tokens: %w", err)
	}

	var docs []tokenDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}

	out := make([]*domain.Token, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// EnsureIndexes creates the unique key and user indexes. The user index makes
// the one-token-per-user rule a storage guarantee.
func (r *TokenRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_key"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_user"),
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
