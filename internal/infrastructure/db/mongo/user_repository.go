package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/playeconomy/identity/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository implements ports.UserStore. Role memberships live on the user
// document, so every membership change is a single-document update.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type userDocument struct {
	ID                 string    `bson:"_id"`
	UserName           string    `bson:"user_name"`
	NormalizedUserName string    `bson:"normalized_user_name"`
	Email              string    `bson:"email"`
	NormalizedEmail    string    `bson:"normalized_email"`
	EmailConfirmed     bool      `bson:"email_confirmed"`
	PasswordHash       string    `bson:"password_hash"`
	Gil                int64     `bson:"gil"`
	Roles              []string  `bson:"roles"`
	CreatedOn          time.Time `bson:"created_on"`
}

func toDocument(u *domain.User) userDocument {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userDocument{
		ID:                 u.ID,
		UserName:           u.UserName,
		NormalizedUserName: domain.Normalize(u.UserName),
		Email:              u.Email,
		NormalizedEmail:    domain.Normalize(u.Email),
		EmailConfirmed:     u.EmailConfirmed,
		PasswordHash:       u.PasswordHash,
		Gil:                u.Gil,
		Roles:              roles,
		CreatedOn:          u.CreatedOn.UTC(),
	}
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:             d.ID,
		UserName:       d.UserName,
		Email:          d.Email,
		EmailConfirmed: d.EmailConfirmed,
		PasswordHash:   d.PasswordHash,
		Gil:            d.Gil,
		Roles:          d.Roles,
		CreatedOn:      d.CreatedOn.UTC(),
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"normalized_email": domain.Normalize(email)})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns all users ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_on", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, nil
}

// Create inserts the user. The unique indexes on normalized email and user
// name turn a concurrent duplicate insert into OutcomeAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (domain.WriteOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.OutcomeAlreadyExists, nil
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return domain.OutcomeCreated, nil
}

// Update overwrites the mutable identity fields of an existing record.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"user_name":            user.UserName,
		"normalized_user_name": domain.Normalize(user.UserName),
		"email":                user.Email,
		"normalized_email":     domain.Normalize(user.Email),
		"gil":                  user.Gil,
	}}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ListRoles(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc struct {
		Roles []string `bson:"roles"`
	}
	opts := options.FindOne().SetProjection(bson.M{"roles": 1})
	if err := r.col.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return doc.Roles, nil
}

// AssignRole adds role with $addToSet: a concurrent duplicate assignment
// leaves the document unmodified and reports OutcomeAlreadyExists.
func (r *UserRepository) AssignRole(ctx context.Context, userID, role string) (domain.WriteOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"roles": role}},
	)
	if err != nil {
		return 0, fmt.Errorf("assign role: %w", err)
	}
	if res.MatchedCount == 0 {
		return 0, domain.ErrUserNotFound
	}
	if res.ModifiedCount == 0 {
		return domain.OutcomeAlreadyExists, nil
	}
	return domain.OutcomeCreated, nil
}

// EnsureIndexes creates the unique lookup indexes the store relies on for
// duplicate detection.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "normalized_email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "normalized_user_name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_on", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
