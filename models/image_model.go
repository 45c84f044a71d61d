package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ImageType string

const (
	ImageProfile ImageType = "profile"
	ImagePost    ImageType = "post"
)

func (t ImageType) Valid() bool {
	return t == ImageProfile || t == ImagePost
}

type Image struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Type      ImageType          `json:"type" bson:"type"`
	Uploader  primitive.ObjectID `json:"uploader" bson:"uploader"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}
