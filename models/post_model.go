package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	ID         primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Author     primitive.ObjectID   `json:"author" bson:"author"`
	Convention *primitive.ObjectID  `json:"convention,omitempty" bson:"convention,omitempty"`
	Text       string               `json:"text" bson:"text"`
	Images     []primitive.ObjectID `json:"images" bson:"images"`
	Likes      []primitive.ObjectID `json:"likes" bson:"likes"`
	CreatedAt  time.Time            `json:"createdAt" bson:"createdAt"`
}

type Comment struct {
	ID        primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Post      primitive.ObjectID   `json:"post" bson:"post"`
	Author    primitive.ObjectID   `json:"author" bson:"author"`
	Text      string               `json:"text" bson:"text"`
	Likes     []primitive.ObjectID `json:"likes" bson:"likes"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
}
