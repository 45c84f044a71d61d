package services

import (
	"conhub/models"
	"conhub/utils/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// attendance says what happens to the member's conventionsAttending list.
type attendance int

const (
	attendanceUnchanged attendance = iota
	attendanceAdd
	attendancePull
)

// membershipChange is the set of writes one membership transition needs.
// A nil update means the transition is a no-op on the convention.
type membershipChange struct {
	update    bson.M
	member    primitive.ObjectID
	attending attendance
}

func (c membershipChange) noop() bool {
	return c.update == nil && c.attending == attendanceUnchanged
}

// planApply decides what applying for role does. Members re-applying and
// users with a pending application are no-ops. Attendees of an open
// convention join directly; everything else queues an application.
func planApply(c *models.Convention, userID primitive.ObjectID, role models.Role) membershipChange {
	if models.ContainsID(c.Members(role), userID) || models.ContainsID(c.Applications(role), userID) {
		return membershipChange{member: userID}
	}
	if role == models.RoleAttendee && !c.Exclusive {
		return membershipChange{
			update:    bson.M{"$addToSet": bson.M{role.Field(): userID}},
			member:    userID,
			attending: attendanceAdd,
		}
	}
	return membershipChange{
		update: bson.M{"$addToSet": bson.M{role.ApplicationsField(): userID}},
		member: userID,
	}
}

// planWithdraw removes userID from role and from any pending application
// for it. Attendance is pulled only when the user holds no other role.
func planWithdraw(c *models.Convention, userID primitive.ObjectID, role models.Role) membershipChange {
	isMember := models.ContainsID(c.Members(role), userID)
	isApplicant := models.ContainsID(c.Applications(role), userID)
	if !isMember && !isApplicant {
		return membershipChange{member: userID}
	}
	change := membershipChange{
		update: bson.M{"$pull": bson.M{
			role.Field():             userID,
			role.ApplicationsField(): userID,
		}},
		member: userID,
	}
	if isMember && !models.ContainsID(c.Members(otherRole(role)), userID) {
		change.attending = attendancePull
	}
	return change
}

// planDecision approves or rejects a pending application. It fails with 404
// when applicantID has not applied.
func planDecision(c *models.Convention, applicantID primitive.ObjectID, role models.Role, approve bool) (membershipChange, error) {
	if !models.ContainsID(c.Applications(role), applicantID) {
		return membershipChange{}, errors.NotFound("application")
	}
	if !approve {
		return membershipChange{
			update: bson.M{"$pull": bson.M{role.ApplicationsField(): applicantID}},
			member: applicantID,
		}, nil
	}
	return membershipChange{
		update: bson.M{
			"$pull":     bson.M{role.ApplicationsField(): applicantID},
			"$addToSet": bson.M{role.Field(): applicantID},
		},
		member:    applicantID,
		attending: attendanceAdd,
	}, nil
}

func planAddOwner(c *models.Convention, userID primitive.ObjectID) membershipChange {
	if c.IsOwner(userID) {
		return membershipChange{member: userID}
	}
	return membershipChange{
		update: bson.M{"$addToSet": bson.M{"owners": userID}},
		member: userID,
	}
}

// planRemoveOwner refuses to leave a convention without owners.
func planRemoveOwner(c *models.Convention, ownerID primitive.ObjectID) (membershipChange, error) {
	if !c.IsOwner(ownerID) {
		return membershipChange{member: ownerID}, nil
	}
	if len(c.Owners) <= 1 {
		return membershipChange{}, errors.Invalid("a convention must keep at least one owner")
	}
	return membershipChange{
		update: bson.M{"$pull": bson.M{"owners": ownerID}},
		member: ownerID,
	}, nil
}

func otherRole(role models.Role) models.Role {
	if role == models.RolePanelist {
		return models.RoleAttendee
	}
	return models.RolePanelist
}
