package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/domain/repository"
	"scl90-gate/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAccessRepository implements AccessRepository on MongoDB. Uniqueness of
// codes and session tokens is enforced by unique indexes.
type MongoAccessRepository struct {
	db       *mongo.Database
	codes    *mongo.Collection
	sessions *mongo.Collection
	log      logger.Logger
}

// NewMongoAccessRepository creates the repository and ensures its indexes
func NewMongoAccessRepository(ctx context.Context, db *mongo.Database, log logger.Logger) (*MongoAccessRepository, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	repo := &MongoAccessRepository{
		db:       db,
		codes:    db.Collection(accessCodesCollection),
		sessions: db.Collection(sessionsCollection),
		log:      log.WithComponent("mongodb"),
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *MongoAccessRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.codes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_code"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("created_at_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create access code indexes: %w", err)
	}

	_, err = r.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_session_token"),
		},
		{
			Keys:    bson.D{{Key: "access_code_id", Value: 1}},
			Options: options.Index().SetName("access_code_id"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

// FindAccessCodeByCode looks a code up by exact match
func (r *MongoAccessRepository) FindAccessCodeByCode(ctx context.Context, code string) (*model.AccessCode, error) {
	var doc accessCodeDocument
	err := r.codes.FindOne(ctx, bson.M{"code": code}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrAccessCodeNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

// FindSessionByToken looks a session up by token
func (r *MongoAccessRepository) FindSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	var doc sessionDocument
	err := r.sessions.FindOne(ctx, bson.M{"session_token": token}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

// InsertSessionIfAbsent relies on the unique session_token index
func (r *MongoAccessRepository) InsertSessionIfAbsent(ctx context.Context, session *model.Session) error {
	_, err := r.sessions.InsertOne(ctx, sessionDocument{
		SessionToken:  session.SessionToken,
		AccessCodeID:  session.AccessCodeID,
		FirstAccessAt: session.FirstAccessAt,
		LastAccessAt:  session.LastAccessAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrSessionExists
		}
		return err
	}
	return nil
}

// SetActivatedAtIfNull only matches documents whose activated_at is null
func (r *MongoAccessRepository) SetActivatedAtIfNull(ctx context.Context, accessCodeID string, at time.Time) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(accessCodeID)
	if err != nil {
		return false, repository.ErrAccessCodeNotFound
	}

	res, err := r.codes.UpdateOne(ctx,
		bson.M{"_id": oid, "activated_at": nil},
		bson.M{"$set": bson.M{"activated_at": at.UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// TouchLastAccess updates last_access_at only
func (r *MongoAccessRepository) TouchLastAccess(ctx context.Context, token string, at time.Time) error {
	res, err := r.sessions.UpdateOne(ctx,
		bson.M{"session_token": token},
		bson.M{"$set": bson.M{"last_access_at": at.UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

// ListAccessCodes returns all codes newest first
func (r *MongoAccessRepository) ListAccessCodes(ctx context.Context) ([]*model.AccessCode, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.codes.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []accessCodeDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	codes := make([]*model.AccessCode, 0, len(docs))
	for i := range docs {
		codes = append(codes, docs[i].toModel())
	}
	return codes, nil
}

// CreateAccessCode inserts a code and fills in its ID
func (r *MongoAccessRepository) CreateAccessCode(ctx context.Context, code *model.AccessCode) error {
	if code == nil {
		return errors.New("access code cannot be nil")
	}

	doc := accessCodeDocument{
		ID:          primitive.NewObjectID(),
		Code:        code.Code,
		IsActive:    code.IsActive,
		ActivatedAt: code.ActivatedAt,
		CreatedAt:   code.CreatedAt,
	}
	if _, err := r.codes.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateCode
		}
		return err
	}

	code.ID = doc.ID.Hex()
	return nil
}

// ResetAccessCode sets is_active=true and activated_at=null
func (r *MongoAccessRepository) ResetAccessCode(ctx context.Context, code string) (*model.AccessCode, error) {
	return r.updateByCode(ctx, code, bson.M{"is_active": true, "activated_at": nil})
}

// SetAccessCodeActive toggles is_active
func (r *MongoAccessRepository) SetAccessCodeActive(ctx context.Context, code string, active bool) (*model.AccessCode, error) {
	return r.updateByCode(ctx, code, bson.M{"is_active": active})
}

func (r *MongoAccessRepository) updateByCode(ctx context.Context, code string, set bson.M) (*model.AccessCode, error) {
	var doc accessCodeDocument
	err := r.codes.FindOneAndUpdate(ctx,
		bson.M{"code": code},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrAccessCodeNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

// Ping checks connectivity
func (r *MongoAccessRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}

// Close disconnects the underlying client
func (r *MongoAccessRepository) Close(ctx context.Context) error {
	return r.db.Client().Disconnect(ctx)
}

var _ repository.AccessRepository = (*MongoAccessRepository)(nil)
