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

type CommentService struct {
	cols  Collections
	posts *PostService
}

func NewCommentService(cols Collections, posts *PostService) *CommentService {
	return &CommentService{cols: cols, posts: posts}
}

// ListForPost returns a post's comments, oldest first.
func (s *CommentService) ListForPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.cols.Comments.Find(ctx, bson.M{"post": postID}, opts)
	if err != nil {
		return nil, errors.FromMongo(err, "comment")
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, errors.FromMongo(err, "comment")
	}
	return comments, nil
}

func (s *CommentService) Create(ctx context.Context, authorID, postID primitive.ObjectID, text string) (*models.Comment, error) {
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	comment := models.Comment{
		Post:      postID,
		Author:    authorID,
		Text:      text,
		Likes:     []primitive.ObjectID{},
		CreatedAt: time.Now().UTC(),
	}
	result, err := s.cols.Comments.InsertOne(ctx, comment)
	if err != nil {
		return nil, errors.FromMongo(err, "comment")
	}
	comment.ID = result.InsertedID.(primitive.ObjectID)

	logger.Info().Str("comment_id", comment.ID.Hex()).Str("post_id", postID.Hex()).Msg("Comment created")
	return &comment, nil
}

func (s *CommentService) GetComment(ctx context.Context, commentID primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	if err := s.cols.Comments.FindOne(ctx, bson.M{"_id": commentID}).Decode(&comment); err != nil {
		return nil, errors.FromMongo(err, "comment")
	}
	return &comment, nil
}

// UpdateText edits a comment. Only the author may edit.
func (s *CommentService) UpdateText(ctx context.Context, callerID, commentID primitive.ObjectID, text string) (*models.Comment, error) {
	comment, err := s.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.Author != callerID {
		return nil, errors.ErrForbidden
	}
	return s.findAndUpdate(ctx, commentID, bson.M{"$set": bson.M{"text": text}})
}

func (s *CommentService) Delete(ctx context.Context, callerID, commentID primitive.ObjectID) error {
	comment, err := s.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.Author != callerID {
		return errors.ErrForbidden
	}
	res, err := s.cols.Comments.DeleteOne(ctx, bson.M{"_id": commentID})
	if err != nil {
		return errors.FromMongo(err, "comment")
	}
	if res.DeletedCount == 0 {
		return errors.NotFound("comment")
	}
	logger.Info().Str("comment_id", commentID.Hex()).Msg("Comment deleted")
	return nil
}

// ToggleLike likes the comment for the user, or unlikes it.
func (s *CommentService) ToggleLike(ctx context.Context, userID, commentID primitive.ObjectID) (*models.Comment, error) {
	comment, err := s.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	op := toggleOp(comment.Likes, userID)
	return s.findAndUpdate(ctx, commentID, bson.M{op: bson.M{"likes": userID}})
}

func (s *CommentService) findAndUpdate(ctx context.Context, commentID primitive.ObjectID, update bson.M) (*models.Comment, error) {
	var comment models.Comment
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.cols.Comments.FindOneAndUpdate(ctx, bson.M{"_id": commentID}, update, opts).Decode(&comment)
	if err != nil {
		return nil, errors.FromMongo(err, "comment")
	}
	return &comment, nil
}
