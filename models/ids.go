package models

import (
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContainsID reports whether id is present in ids.
func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	return slices.Contains(ids, id)
}
