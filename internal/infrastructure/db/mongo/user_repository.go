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

	"github.com/insureportal/portal-api/internal/core/domain"
)

const usersCollection = "users"

// UserRepository persists principals in the users collection.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	NationalID   string             `bson:"national_id,omitempty"`
	FullName     string             `bson:"full_name,omitempty"`
	Phone        string             `bson:"phone,omitempty"`
	PasswordHash string             `bson:"password_hash,omitempty"`
	Role         string             `bson:"role"`
	Permissions  []string           `bson:"permissions,omitempty"`
	IsActive     bool               `bson:"is_active"`
	IsSuspended  bool               `bson:"is_suspended"`
	IsVerified   bool               `bson:"is_verified"`
	LastLogin    time.Time          `bson:"last_login,omitempty"`
	LastActive   time.Time          `bson:"last_active,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// noCredentials keeps the password hash out of every read that does not
// verify a password.
var noCredentials = options.FindOne().SetProjection(bson.M{"password_hash": 0})

func toMongoUser(u *domain.User) mongoUser {
	perms := make([]string, 0, len(u.Permissions))
	for _, p := range u.Permissions {
		perms = append(perms, string(p))
	}
	return mongoUser{
		Username:     u.Username,
		Email:        u.Email,
		NationalID:   u.NationalID,
		FullName:     u.FullName,
		Phone:        u.Phone,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Permissions:  perms,
		IsActive:     u.IsActive,
		IsSuspended:  u.IsSuspended,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (mu mongoUser) toDomain() *domain.User {
	var perms []domain.Permission
	for _, p := range mu.Permissions {
		perms = append(perms, domain.Permission(p))
	}
	role, ok := domain.ParseRole(mu.Role)
	if !ok {
		role = domain.Role(mu.Role)
	}
	return &domain.User{
		ID:           mu.ID.Hex(),
		Username:     mu.Username,
		Email:        mu.Email,
		NationalID:   mu.NationalID,
		FullName:     mu.FullName,
		Phone:        mu.Phone,
		PasswordHash: mu.PasswordHash,
		Role:         role,
		Permissions:  perms,
		IsActive:     mu.IsActive,
		IsSuspended:  mu.IsSuspended,
		IsVerified:   mu.IsVerified,
		LastLogin:    mu.LastLogin,
		LastActive:   mu.LastActive,
		CreatedAt:    mu.CreatedAt,
		UpdatedAt:    mu.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(user)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

// FindByLogin matches the identifier against email or username.
func (r *UserRepository) FindByLogin(ctx context.Context, identifier string) (*domain.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": identifier},
		bson.M{"username": identifier},
	}}
	return r.findOne(ctx, filter)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid}, noCredentials)
}

func (r *UserRepository) FindCredentials(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	return r.touch(ctx, id, "last_active", at)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.touch(ctx, id, "last_login", at)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	set := bson.M{}
	if update.FullName != nil {
		set["full_name"] = *update.FullName
	}
	if update.Phone != nil {
		set["phone"] = *update.Phone
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	return r.updateOne(ctx, id, set)
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.updateOne(ctx, id, bson.M{"password_hash": hash})
	return err
}

func (r *UserRepository) SetStatus(ctx context.Context, id string, status domain.AccountStatus) (*domain.User, error) {
	return r.updateOne(ctx, id, bson.M{
		"is_active":    status.IsActive,
		"is_suspended": status.IsSuspended,
		"is_verified":  status.IsVerified,
	})
}

func (r *UserRepository) SetPermissions(ctx context.Context, id string, perms []domain.Permission) (*domain.User, error) {
	values := make([]string, 0, len(perms))
	for _, p := range perms {
		values = append(values, string(p))
	}
	return r.updateOne(ctx, id, bson.M{"permissions": values})
}

// EnsureIndexes creates the uniqueness guarantees registration relies on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "national_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"national_id": bson.M{"$type": "string"}}),
		},
	}
	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// touch sets a single timestamp field. It bypasses updated_at so activity
// tracking never looks like a profile edit.
func (r *UserRepository) touch(ctx context.Context, id, field string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{field: at}}); err != nil {
		return fmt.Errorf("touch %s: %w", field, err)
	}
	return nil
}

func (r *UserRepository) updateOne(ctx context.Context, id string, set bson.M) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"password_hash": 0})

	var mu mongoUser
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&mu)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, domain.ErrUserNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, domain.ErrUserExists
	case err != nil:
		return nil, fmt.Errorf("update user: %w", err)
	}
	return mu.toDomain(), nil
}
