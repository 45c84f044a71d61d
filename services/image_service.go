package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"conhub/models"
	"conhub/utils/errors"
	"conhub/utils/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxImageSize bounds a single upload.
const MaxImageSize = 10 << 20

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

type ImageService struct {
	cols      Collections
	cache     entityCache
	dir       string
	converter ImageConverter
}

// NewImageService ensures the storage directories exist under dir.
func NewImageService(cols Collections, cache Cache, dir string, converter ImageConverter) (*ImageService, error) {
	for _, sub := range []string{"tmp", string(models.ImageProfile), string(models.ImagePost)} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create image directory %s: %w", path, err)
		}
	}
	logger.Info().Str("path", dir).Msg("Image storage directory ensured")
	return &ImageService{
		cols:      cols,
		cache:     entityCache{cache: cache},
		dir:       dir,
		converter: converter,
	}, nil
}

// Upload stores src as a temporary file, converts it into place and
// records the image. Profile images also become the uploader's avatar.
func (s *ImageService) Upload(ctx context.Context, uploaderID primitive.ObjectID, kind models.ImageType, src io.Reader) (*models.Image, error) {
	if !kind.Valid() {
		return nil, errors.Invalid("type must be one of: profile post")
	}

	tmpPath, err := s.saveTemp(src)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	image := models.Image{
		ID:        primitive.NewObjectID(),
		Type:      kind,
		Uploader:  uploaderID,
		CreatedAt: time.Now().UTC(),
	}
	dst := s.path(image)
	if err := s.converter.Convert(ctx, tmpPath, dst); err != nil {
		logger.Error().Err(err).Str("image_id", image.ID.Hex()).Msg("Image conversion failed")
		return nil, errors.Wrap(err, "IMAGE_ERROR", "Failed to process image", http.StatusInternalServerError)
	}

	if _, err := s.cols.Images.InsertOne(ctx, image); err != nil {
		_ = os.Remove(dst)
		return nil, errors.FromMongo(err, "image")
	}

	if kind == models.ImageProfile {
		if _, err := updateUser(ctx, s.cols.Users, s.cache, uploaderID, bson.M{"$set": bson.M{"profileImage": image.ID}}); err != nil {
			s.discard(ctx, image, dst)
			return nil, err
		}
	}

	logger.Info().Str("image_id", image.ID.Hex()).Str("type", string(kind)).Msg("Image stored")
	return &image, nil
}

// discard removes a stored image that could not be attached to its owner.
func (s *ImageService) discard(ctx context.Context, image models.Image, path string) {
	if _, err := s.cols.Images.DeleteOne(ctx, bson.M{"_id": image.ID}); err != nil {
		logger.Error().Err(err).Str("image_id", image.ID.Hex()).Msg("Failed to delete orphaned image record")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Error().Err(err).Str("image_id", image.ID.Hex()).Msg("Failed to delete orphaned image file")
	}
}

// saveTemp copies at most MaxImageSize bytes into the tmp directory after
// checking the content is a supported image.
func (s *ImageService) saveTemp(src io.Reader) (string, error) {
	limited := io.LimitReader(src, MaxImageSize+1)

	// Read the header once for detection and replay it into the file.
	header := make([]byte, 3072)
	n, err := io.ReadFull(limited, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.Invalid("failed to read upload")
	}
	header = header[:n]
	if n == 0 {
		return "", errors.Invalid("image is empty")
	}
	mtype := mimetype.Detect(header)
	if !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
		return "", errors.Invalid("unsupported image type " + mtype.String())
	}

	tmpPath := filepath.Join(s.dir, "tmp", uuid.New().String()+mtype.Extension())
	dst, err := os.Create(tmpPath)
	if err != nil {
		return "", errors.Wrap(err, "IMAGE_ERROR", "Failed to store image", http.StatusInternalServerError)
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.MultiReader(bytes.NewReader(header), limited))
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", errors.Wrap(err, "IMAGE_ERROR", "Failed to store image", http.StatusInternalServerError)
	}
	if written > MaxImageSize {
		_ = os.Remove(tmpPath)
		return "", errors.Invalid("image must be at most 10 MiB")
	}
	return tmpPath, nil
}

// Path looks up an image and returns the processed file's location.
func (s *ImageService) Path(ctx context.Context, imageID primitive.ObjectID) (string, error) {
	var image models.Image
	if err := s.cols.Images.FindOne(ctx, bson.M{"_id": imageID}).Decode(&image); err != nil {
		return "", errors.FromMongo(err, "image")
	}
	return s.path(image), nil
}

func (s *ImageService) path(image models.Image) string {
	return filepath.Join(s.dir, string(image.Type), image.ID.Hex()+".jpg")
}
