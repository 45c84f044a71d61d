package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID                   primitive.ObjectID    `json:"id" bson:"_id,omitempty"`
	FirstName            string                `json:"firstName" bson:"firstName"`
	LastName             string                `json:"lastName" bson:"lastName"`
	Username             string                `json:"username" bson:"username"`
	PasswordHash         string                `json:"-" bson:"password"`
	Bio                  string                `json:"bio" bson:"bio"`
	ProfileImage         *primitive.ObjectID   `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	Following            []primitive.ObjectID  `json:"following" bson:"following"`
	Followers            []primitive.ObjectID  `json:"followers" bson:"followers"`
	Bookmarks            []primitive.ObjectID  `json:"bookmarks" bson:"bookmarks"`
	Likes                []primitive.ObjectID  `json:"likes" bson:"likes"`
	ConventionsAttending []primitive.ObjectID  `json:"conventionsAttending" bson:"conventionsAttending"`
	ConventionsFollowing []primitive.ObjectID  `json:"conventionsFollowing" bson:"conventionsFollowing"`
	Balance              *primitive.Decimal128 `json:"balance,omitempty" bson:"balance,omitempty"`
	CreatedAt            time.Time             `json:"createdAt" bson:"createdAt"`
}

// UserSummary is the public card shown in follower lists and author bylines.
type UserSummary struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id"`
	FirstName    string              `json:"firstName" bson:"firstName"`
	LastName     string              `json:"lastName" bson:"lastName"`
	Username     string              `json:"username" bson:"username"`
	ProfileImage *primitive.ObjectID `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
}

// NewUser returns a user with every id list initialised so that the stored
// document never carries null arrays.
func NewUser(firstName, lastName, username, passwordHash string) User {
	return User{
		FirstName:            firstName,
		LastName:             lastName,
		Username:             username,
		PasswordHash:         passwordHash,
		Following:            []primitive.ObjectID{},
		Followers:            []primitive.ObjectID{},
		Bookmarks:            []primitive.ObjectID{},
		Likes:                []primitive.ObjectID{},
		ConventionsAttending: []primitive.ObjectID{},
		ConventionsFollowing: []primitive.ObjectID{},
		CreatedAt:            time.Now().UTC(),
	}
}
