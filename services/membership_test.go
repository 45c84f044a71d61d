package services

import (
	"net/http"
	"testing"

	"conhub/models"
	"conhub/utils/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newConvention(owner primitive.ObjectID, exclusive bool) *models.Convention {
	return &models.Convention{
		ID:        primitive.NewObjectID(),
		Exclusive: exclusive,
		Owners:    []primitive.ObjectID{owner},
		Attendees: []primitive.ObjectID{owner},
	}
}

func TestPlanApply(t *testing.T) {
	owner, user := primitive.NewObjectID(), primitive.NewObjectID()

	cases := []struct {
		name      string
		exclusive bool
		role      models.Role
		setup     func(c *models.Convention)
		field     string
		attending attendance
		noop      bool
	}{
		{name: "open attendee joins", role: models.RoleAttendee, field: "attendees", attending: attendanceAdd},
		{name: "exclusive attendee applies", exclusive: true, role: models.RoleAttendee, field: "attendeeApplications"},
		{name: "panelist always applies", role: models.RolePanelist, field: "panelistApplications"},
		{
			name:  "existing attendee is a no-op",
			role:  models.RoleAttendee,
			setup: func(c *models.Convention) { c.Attendees = append(c.Attendees, user) },
			noop:  true,
		},
		{
			name:  "pending applicant is a no-op",
			role:  models.RolePanelist,
			setup: func(c *models.Convention) { c.PanelistApplications = []primitive.ObjectID{user} },
			noop:  true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newConvention(owner, tc.exclusive)
			if tc.setup != nil {
				tc.setup(c)
			}
			change := planApply(c, user, tc.role)
			if tc.noop {
				if !change.noop() {
					t.Fatalf("expected no-op, got %+v", change)
				}
				return
			}
			added, ok := change.update["$addToSet"].(bson.M)
			if !ok || added[tc.field] != user {
				t.Fatalf("expected $addToSet on %s, got %v", tc.field, change.update)
			}
			if change.attending != tc.attending {
				t.Fatalf("attending = %v, want %v", change.attending, tc.attending)
			}
		})
	}
}

func TestPlanWithdraw(t *testing.T) {
	owner, user := primitive.NewObjectID(), primitive.NewObjectID()

	t.Run("not a member", func(t *testing.T) {
		if change := planWithdraw(newConvention(owner, false), user, models.RoleAttendee); !change.noop() {
			t.Fatalf("expected no-op, got %+v", change)
		}
	})

	t.Run("sole role pulls attendance", func(t *testing.T) {
		c := newConvention(owner, false)
		c.Panelists = []primitive.ObjectID{user}
		change := planWithdraw(c, user, models.RolePanelist)
		if change.attending != attendancePull {
			t.Fatalf("attending = %v, want pull", change.attending)
		}
		pulled := change.update["$pull"].(bson.M)
		if pulled["panelists"] != user || pulled["panelistApplications"] != user {
			t.Fatalf("unexpected pull %v", pulled)
		}
	})

	t.Run("other role keeps attendance", func(t *testing.T) {
		c := newConvention(owner, false)
		c.Panelists = []primitive.ObjectID{user}
		c.Attendees = append(c.Attendees, user)
		change := planWithdraw(c, user, models.RoleAttendee)
		if change.attending != attendanceUnchanged {
			t.Fatalf("attending = %v, want unchanged", change.attending)
		}
	})

	t.Run("applicant only", func(t *testing.T) {
		c := newConvention(owner, true)
		c.AttendeeApplications = []primitive.ObjectID{user}
		change := planWithdraw(c, user, models.RoleAttendee)
		if change.update == nil || change.attending != attendanceUnchanged {
			t.Fatalf("unexpected change %+v", change)
		}
	})
}

func TestPlanDecision(t *testing.T) {
	owner, applicant := primitive.NewObjectID(), primitive.NewObjectID()

	c := newConvention(owner, true)
	if _, err := planDecision(c, applicant, models.RoleAttendee, true); err == nil {
		t.Fatal("approving without an application should fail")
	} else if apiErr := err.(*errors.APIError); apiErr.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", apiErr.Status)
	}

	c.AttendeeApplications = []primitive.ObjectID{applicant}
	approve, err := planDecision(c, applicant, models.RoleAttendee, true)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approve.attending != attendanceAdd {
		t.Fatal("approval should add attendance")
	}
	if approve.update["$addToSet"].(bson.M)["attendees"] != applicant {
		t.Fatalf("approval should add to attendees: %v", approve.update)
	}
	if approve.update["$pull"].(bson.M)["attendeeApplications"] != applicant {
		t.Fatalf("approval should clear the application: %v", approve.update)
	}

	reject, err := planDecision(c, applicant, models.RoleAttendee, false)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if reject.attending != attendanceUnchanged || reject.update["$addToSet"] != nil {
		t.Fatalf("rejection should only clear the application: %+v", reject)
	}
}

func TestPlanOwners(t *testing.T) {
	owner, other := primitive.NewObjectID(), primitive.NewObjectID()
	c := newConvention(owner, false)

	if change := planAddOwner(c, owner); !change.noop() {
		t.Fatal("adding an existing owner should be a no-op")
	}
	if change := planAddOwner(c, other); change.update["$addToSet"].(bson.M)["owners"] != other {
		t.Fatalf("unexpected add owner update %v", change.update)
	}

	if _, err := planRemoveOwner(c, owner); err == nil {
		t.Fatal("removing the last owner should fail")
	}
	if change, err := planRemoveOwner(c, other); err != nil || !change.noop() {
		t.Fatalf("removing a non-owner should be a no-op, got %+v %v", change, err)
	}

	c.Owners = append(c.Owners, other)
	change, err := planRemoveOwner(c, owner)
	if err != nil {
		t.Fatalf("remove owner: %v", err)
	}
	if change.update["$pull"].(bson.M)["owners"] != owner {
		t.Fatalf("unexpected remove owner update %v", change.update)
	}
}

func TestToggleOp(t *testing.T) {
	id := primitive.NewObjectID()
	if op := toggleOp(nil, id); op != "$addToSet" {
		t.Fatalf("toggleOp on empty = %s", op)
	}
	if op := toggleOp([]primitive.ObjectID{primitive.NewObjectID(), id}, id); op != "$pull" {
		t.Fatalf("toggleOp on present = %s", op)
	}
}
