package services

import (
	"context"
	"net/http"
	"time"

	"conhub/models"
	"conhub/utils/errors"
	"conhub/utils/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	cols  Collections
	cache entityCache
}

// ProfileUpdate carries the optional fields of a profile edit. Nil fields
// are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Username  *string
	Bio       *string
	Password  *string
}

func NewUserService(cols Collections, cache Cache, ttl time.Duration) *UserService {
	return &UserService{
		cols:  cols,
		cache: entityCache{cache: cache, ttl: ttl},
	}
}

// EnsureIndexes creates the unique username index.
func (s *UserService) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.cols.Users.Indexes().CreateOne(ctx, indexModel); err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to create user indexes", http.StatusInternalServerError)
	}
	return nil
}

// GetUser retrieves a user from the cache or MongoDB
func (s *UserService) GetUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	key := userKey(userID.Hex())

	if s.cache.load(ctx, key, &user) {
		return &user, nil
	}

	err := s.cols.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		return nil, errors.FromMongo(err, "user")
	}

	s.cache.store(ctx, key, user)
	return &user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.cols.Users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		return nil, errors.FromMongo(err, "user")
	}
	return &user, nil
}

// Summaries returns the public cards of the given users. Ids that no longer
// resolve are skipped.
func (s *UserService) Summaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	summaries := []models.UserSummary{}
	if len(ids) == 0 {
		return summaries, nil
	}
	opts := options.Find().SetProjection(bson.M{
		"firstName": 1, "lastName": 1, "username": 1, "profileImage": 1,
	})
	cursor, err := s.cols.Users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, errors.FromMongo(err, "user")
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, errors.FromMongo(err, "user")
	}
	return summaries, nil
}

func (s *UserService) Followers(ctx context.Context, userID primitive.ObjectID) ([]models.UserSummary, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Summaries(ctx, user.Followers)
}

func (s *UserService) Following(ctx context.Context, userID primitive.ObjectID) ([]models.UserSummary, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Summaries(ctx, user.Following)
}

// UpdateProfile applies the non-nil fields of update and returns the
// refreshed user.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update ProfileUpdate) (*models.User, error) {
	set := bson.M{}
	if update.FirstName != nil {
		set["firstName"] = *update.FirstName
	}
	if update.LastName != nil {
		set["lastName"] = *update.LastName
	}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.Password != nil {
		hash, err := hashPassword(*update.Password)
		if err != nil {
			return nil, err
		}
		set["password"] = hash
	}
	if len(set) == 0 {
		return s.GetUser(ctx, userID)
	}

	user, err := s.findAndUpdate(ctx, userID, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("user_id", userID.Hex()).Msg("Profile updated")
	return user, nil
}

// DeleteUser removes the account and then, best effort, the references
// other documents hold to it.
func (s *UserService) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	res, err := s.cols.Users.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return errors.FromMongo(err, "user")
	}
	if res.DeletedCount == 0 {
		return errors.NotFound("user")
	}
	s.cache.invalidate(ctx, userKey(userID.Hex()))

	follows := bson.M{"$or": bson.A{bson.M{"followers": userID}, bson.M{"following": userID}}}
	stale := cachedKeys(ctx, s.cols.Users, follows, userKey)
	if _, err := s.cols.Users.UpdateMany(ctx, follows,
		bson.M{"$pull": bson.M{"followers": userID, "following": userID}},
	); err != nil {
		logger.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to detach deleted user from follow lists")
	}

	memberships := bson.M{"$or": bson.A{
		bson.M{"panelists": userID},
		bson.M{"attendees": userID},
		bson.M{"panelistApplications": userID},
		bson.M{"attendeeApplications": userID},
	}}
	stale = append(stale, cachedKeys(ctx, s.cols.Conventions, memberships, conventionKey)...)
	if _, err := s.cols.Conventions.UpdateMany(ctx, memberships, bson.M{"$pull": bson.M{
		"panelists":            userID,
		"attendees":            userID,
		"panelistApplications": userID,
		"attendeeApplications": userID,
	}}); err != nil {
		logger.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to detach deleted user from conventions")
	}
	s.cache.invalidate(ctx, stale...)

	logger.Info().Str("user_id", userID.Hex()).Msg("User deleted")
	return nil
}

// ToggleFollow makes userID follow targetID, or unfollow if already
// following, and returns the refreshed follower.
func (s *UserService) ToggleFollow(ctx context.Context, userID, targetID primitive.ObjectID) (*models.User, error) {
	if userID == targetID {
		return nil, errors.Invalid("cannot follow yourself")
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, targetID); err != nil {
		return nil, err
	}

	op := toggleOp(user.Following, targetID)

	_, err = s.cols.Users.UpdateOne(ctx, bson.M{"_id": targetID}, bson.M{op: bson.M{"followers": userID}})
	if err != nil {
		return nil, errors.FromMongo(err, "user")
	}
	s.cache.invalidate(ctx, userKey(targetID.Hex()))

	updated, err := s.findAndUpdate(ctx, userID, bson.M{op: bson.M{"following": targetID}})
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("user_id", userID.Hex()).Str("target_id", targetID.Hex()).Str("op", op).Msg("Follow toggled")
	return updated, nil
}

// findAndUpdate applies update to one user, drops the cached copy and
// returns the document after the update.
func (s *UserService) findAndUpdate(ctx context.Context, userID primitive.ObjectID, update bson.M) (*models.User, error) {
	return updateUser(ctx, s.cols.Users, s.cache, userID, update)
}

func updateUser(ctx context.Context, users *mongo.Collection, cache entityCache, userID primitive.ObjectID, update bson.M) (*models.User, error) {
	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := users.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&user)
	if err != nil {
		return nil, errors.FromMongo(err, "user")
	}
	cache.invalidate(ctx, userKey(userID.Hex()))
	return &user, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "HASH_ERROR", "failed to hash password", http.StatusInternalServerError)
	}
	return string(hash), nil
}
