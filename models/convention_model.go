package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Convention struct {
	ID                   primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name                 string               `json:"name" bson:"name"`
	Tags                 []string             `json:"tags" bson:"tags"`
	StartDate            string               `json:"startDate" bson:"startDate"`
	EndDate              string               `json:"endDate" bson:"endDate"`
	Description          string               `json:"description" bson:"description"`
	Online               bool                 `json:"online" bson:"online"`
	Address              string               `json:"address" bson:"address"`
	Exclusive            bool                 `json:"exclusive" bson:"exclusive"`
	Owners               []primitive.ObjectID `json:"owners" bson:"owners"`
	Panelists            []primitive.ObjectID `json:"panelists" bson:"panelists"`
	Attendees            []primitive.ObjectID `json:"attendees" bson:"attendees"`
	PanelistApplications []primitive.ObjectID `json:"panelistApplications" bson:"panelistApplications"`
	AttendeeApplications []primitive.ObjectID `json:"attendeeApplications" bson:"attendeeApplications"`
	CreatedAt            time.Time            `json:"createdAt" bson:"createdAt"`
}

// Role is a convention membership list that users apply to.
type Role string

const (
	RoleAttendee Role = "attendees"
	RolePanelist Role = "panelists"
)

// Field returns the document field holding the role's members.
func (r Role) Field() string {
	return string(r)
}

// ApplicationsField returns the document field holding pending applications
// for the role.
func (r Role) ApplicationsField() string {
	if r == RolePanelist {
		return "panelistApplications"
	}
	return "attendeeApplications"
}

func (r Role) Valid() bool {
	return r == RoleAttendee || r == RolePanelist
}

// Members returns the convention's member list for the role.
func (c *Convention) Members(r Role) []primitive.ObjectID {
	if r == RolePanelist {
		return c.Panelists
	}
	return c.Attendees
}

// Applications returns the pending applications for the role.
func (c *Convention) Applications(r Role) []primitive.ObjectID {
	if r == RolePanelist {
		return c.PanelistApplications
	}
	return c.AttendeeApplications
}

func (c *Convention) IsOwner(id primitive.ObjectID) bool {
	return ContainsID(c.Owners, id)
}
