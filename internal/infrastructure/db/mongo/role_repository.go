package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/playeconomy/identity/internal/core/domain"
)

const collectionRoles = "roles"

// RoleRepository implements ports.RoleStore.
type RoleRepository struct {
	col *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{col: db.Collection(collectionRoles)}
}

type roleDocument struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	NormalizedName string    `bson:"normalized_name"`
	CreatedOn      time.Time `bson:"created_on"`
}

// CreateRole inserts the role; the unique index on normalized_name makes a
// concurrent second insert report OutcomeAlreadyExists.
func (r *RoleRepository) CreateRole(ctx context.Context, name string) (domain.WriteOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := roleDocument{
		ID:             uuid.NewString(),
		Name:           name,
		NormalizedName: domain.Normalize(name),
		CreatedOn:      time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.OutcomeAlreadyExists, nil
		}
		return 0, fmt.Errorf("insert role %s: %w", name, err)
	}
	return domain.OutcomeCreated, nil
}

// EnsureIndexes creates the unique role-name index.
func (r *RoleRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "normalized_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
