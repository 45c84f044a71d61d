package services

import (
	"context"
	"time"

	"conhub/models"
	"conhub/utils/errors"
	"conhub/utils/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PostService struct {
	cols  Collections
	cache entityCache
}

// NewPostInput is a validated post body.
type NewPostInput struct {
	Text       string
	Images     []primitive.ObjectID
	Convention *primitive.ObjectID
}

// PostQuery pages through posts newest first. Before, when set, is the id
// of the last post the client already has.
type PostQuery struct {
	Author     *primitive.ObjectID
	Convention *primitive.ObjectID
	Before     *primitive.ObjectID
	Limit      int64
}

func NewPostService(cols Collections, cache Cache, ttl time.Duration) *PostService {
	return &PostService{
		cols:  cols,
		cache: entityCache{cache: cache, ttl: ttl},
	}
}

func (s *PostService) Create(ctx context.Context, authorID primitive.ObjectID, input NewPostInput) (*models.Post, error) {
	if input.Convention != nil {
		count, err := s.cols.Conventions.CountDocuments(ctx, bson.M{"_id": *input.Convention}, options.Count().SetLimit(1))
		if err != nil {
			return nil, errors.FromMongo(err, "convention")
		}
		if count == 0 {
			return nil, errors.NotFound("convention")
		}
	}

	images := input.Images
	if images == nil {
		images = []primitive.ObjectID{}
	}
	post := models.Post{
		Author:     authorID,
		Convention: input.Convention,
		Text:       input.Text,
		Images:     images,
		Likes:      []primitive.ObjectID{},
		CreatedAt:  time.Now().UTC(),
	}
	result, err := s.cols.Posts.InsertOne(ctx, post)
	if err != nil {
		return nil, errors.FromMongo(err, "post")
	}
	post.ID = result.InsertedID.(primitive.ObjectID)

	logger.Info().Str("post_id", post.ID.Hex()).Str("author", authorID.Hex()).Msg("Post created")
	return &post, nil
}

// GetPost retrieves a post from the cache or MongoDB
func (s *PostService) GetPost(ctx context.Context, postID primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	key := postKey(postID.Hex())
	if s.cache.load(ctx, key, &post) {
		return &post, nil
	}
	if err := s.cols.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post); err != nil {
		return nil, errors.FromMongo(err, "post")
	}
	s.cache.store(ctx, key, post)
	return &post, nil
}

func (s *PostService) List(ctx context.Context, query PostQuery) ([]models.Post, error) {
	filter := bson.M{}
	if query.Author != nil {
		filter["author"] = *query.Author
	}
	if query.Convention != nil {
		filter["convention"] = *query.Convention
	}
	if query.Before != nil {
		filter["_id"] = bson.M{"$lt": *query.Before}
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	// ObjectIDs start with their creation second, so _id order is
	// creation order.
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(limit)
	return s.find(ctx, filter, opts)
}

// Bookmarks returns the posts the user has bookmarked.
func (s *PostService) Bookmarks(ctx context.Context, userID primitive.ObjectID) ([]models.Post, error) {
	var user models.User
	err := s.cols.Users.FindOne(ctx, bson.M{"_id": userID}, options.FindOne().SetProjection(bson.M{"bookmarks": 1})).Decode(&user)
	if err != nil {
		return nil, errors.FromMongo(err, "user")
	}
	if len(user.Bookmarks) == 0 {
		return []models.Post{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	return s.find(ctx, bson.M{"_id": bson.M{"$in": user.Bookmarks}}, opts)
}

func (s *PostService) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Post, error) {
	cursor, err := s.cols.Posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.FromMongo(err, "post")
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, errors.FromMongo(err, "post")
	}
	return posts, nil
}

// UpdateText edits a post's text. Only the author may edit.
func (s *PostService) UpdateText(ctx context.Context, callerID, postID primitive.ObjectID, text string) (*models.Post, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Author != callerID {
		return nil, errors.ErrForbidden
	}
	return s.findAndUpdate(ctx, postID, bson.M{"$set": bson.M{"text": text}})
}

// Delete removes the post's comments, then the post, then every user's
// like and bookmark of it. The steps are sequential and not atomic.
func (s *PostService) Delete(ctx context.Context, callerID, postID primitive.ObjectID) error {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.Author != callerID {
		return errors.ErrForbidden
	}

	if _, err := s.cols.Comments.DeleteMany(ctx, bson.M{"post": postID}); err != nil {
		return errors.FromMongo(err, "comment")
	}
	res, err := s.cols.Posts.DeleteOne(ctx, bson.M{"_id": postID})
	if err != nil {
		return errors.FromMongo(err, "post")
	}
	if res.DeletedCount == 0 {
		return errors.NotFound("post")
	}
	s.cache.invalidate(ctx, postKey(postID.Hex()))

	holders := bson.M{"$or": bson.A{bson.M{"likes": postID}, bson.M{"bookmarks": postID}}}
	stale := cachedKeys(ctx, s.cols.Users, holders, userKey)
	if _, err := s.cols.Users.UpdateMany(ctx, holders,
		bson.M{"$pull": bson.M{"likes": postID, "bookmarks": postID}},
	); err != nil {
		logger.Error().Err(err).Str("post_id", postID.Hex()).Msg("Failed to detach deleted post from users")
	}
	s.cache.invalidate(ctx, stale...)

	logger.Info().Str("post_id", postID.Hex()).Msg("Post deleted")
	return nil
}

// ToggleLike likes the post for the user, or unlikes it if already liked.
// Both the post's like list and the user's are updated.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID primitive.ObjectID) (*models.Post, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	op := toggleOp(post.Likes, userID)

	updated, err := s.findAndUpdate(ctx, postID, bson.M{op: bson.M{"likes": userID}})
	if err != nil {
		return nil, err
	}
	if _, err := updateUser(ctx, s.cols.Users, s.cache, userID, bson.M{op: bson.M{"likes": postID}}); err != nil {
		return nil, err
	}
	return updated, nil
}

// ToggleBookmark adds the post to the user's bookmarks, or removes it.
func (s *PostService) ToggleBookmark(ctx context.Context, userID, postID primitive.ObjectID) (*models.User, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	var user models.User
	err := s.cols.Users.FindOne(ctx, bson.M{"_id": userID}, options.FindOne().SetProjection(bson.M{"bookmarks": 1})).Decode(&user)
	if err != nil {
		return nil, errors.FromMongo(err, "user")
	}
	op := toggleOp(user.Bookmarks, postID)
	return updateUser(ctx, s.cols.Users, s.cache, userID, bson.M{op: bson.M{"bookmarks": postID}})
}

func (s *PostService) findAndUpdate(ctx context.Context, postID primitive.ObjectID, update bson.M) (*models.Post, error) {
	var post models.Post
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.cols.Posts.FindOneAndUpdate(ctx, bson.M{"_id": postID}, update, opts).Decode(&post)
	if err != nil {
		return nil, errors.FromMongo(err, "post")
	}
	s.cache.invalidate(ctx, postKey(postID.Hex()))
	return &post, nil
}

// toggleOp picks the set operator that flips id's membership in ids.
func toggleOp(ids []primitive.ObjectID, id primitive.ObjectID) string {
	if models.ContainsID(ids, id) {
		return "$pull"
	}
	return "$addToSet"
}
