package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/konekta/identity/internal/core/domain"
)

const userCollection = "users"

// MongoUserRepository persists user records in MongoDB. It implements
// ports.UserRepository.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(userCollection)}
}

type mongoUser struct {
	ID                   string   `bson:"_id"`
	Email                string   `bson:"email"`
	FirstName            string   `bson:"first_name,omitempty"`
	LastName             string   `bson:"last_name,omitempty"`
	SecretHash           string   `bson:"secret_hash,omitempty"`
	Username             string   `bson:"username,omitempty"`
	FullName             string   `bson:"full_name,omitempty"`
	Bio                  string   `bson:"bio,omitempty"`
	AvatarRef            string   `bson:"avatar_ref,omitempty"`
	Interests            []string `bson:"interests,omitempty"`
	IsNewUser            bool     `bson:"is_new_user"`
	IsPasswordSet        bool     `bson:"is_password_set"`
	OnboardingComplete   bool     `bson:"onboarding_complete"`
	ProfileSetupComplete bool     `bson:"profile_setup_complete"`
	CreatedAt            int64    `bson:"created_at"`
	UpdatedAt            int64    `bson:"updated_at"`
}

func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if _, err := r.coll.InsertOne(ctx, toDoc(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateFieldError(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return r.FindByEmail(ctx, user.Email)
}

func (r *MongoUserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, toDoc(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateFieldError(err)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrUserNotFound
	}
	return r.FindByEmail(ctx, user.Email)
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": strings.ToLower(strings.TrimSpace(username))})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return fromDoc(mu), nil
}

func toDoc(u *domain.User) mongoUser {
	return mongoUser{
		ID:                   u.ID,
		Email:                domain.NormalizeEmail(u.Email),
		FirstName:            u.FirstName,
		LastName:             u.LastName,
		SecretHash:           u.SecretHash,
		Username:             strings.ToLower(u.Profile.Username),
		FullName:             u.Profile.FullName,
		Bio:                  u.Profile.Bio,
		AvatarRef:            u.Profile.AvatarRef,
		Interests:            u.Profile.Interests,
		IsNewUser:            u.Flags.IsNewUser,
		IsPasswordSet:        u.Flags.IsPasswordSet,
		OnboardingComplete:   u.Flags.OnboardingComplete,
		ProfileSetupComplete: u.Flags.ProfileSetupComplete,
		CreatedAt:            u.CreatedAt.Unix(),
		UpdatedAt:            u.UpdatedAt.Unix(),
	}
}

func fromDoc(mu mongoUser) *domain.User {
	return &domain.User{
		ID:         mu.ID,
		Email:      mu.Email,
		FirstName:  mu.FirstName,
		LastName:   mu.LastName,
		SecretHash: mu.SecretHash,
		Profile: domain.Profile{
			Username:  mu.Username,
			FullName:  mu.FullName,
			Bio:       mu.Bio,
			AvatarRef: mu.AvatarRef,
			Interests: mu.Interests,
		},
		Flags: domain.StageFlags{
			IsNewUser:            mu.IsNewUser,
			IsPasswordSet:        mu.IsPasswordSet,
			OnboardingComplete:   mu.OnboardingComplete,
			ProfileSetupComplete: mu.ProfileSetupComplete,
		},
		CreatedAt: unixToTime(mu.CreatedAt),
		UpdatedAt: unixToTime(mu.UpdatedAt),
	}
}

// duplicateFieldError inspects the duplicate-key message to name the field
// that collided. The index on email is the common case.
func duplicateFieldError(err error) error {
	if strings.Contains(err.Error(), "username") {
		return domain.ErrUsernameTaken
	}
	return domain.ErrEmailTaken
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
