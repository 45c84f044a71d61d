package services

import (
	"context"
	"net/http"
	"slices"
	"testing"
	"time"

	"conhub/models"
	"conhub/utils/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const conventionsNS = "conhub.conventions"

func withIDs(ids []primitive.ObjectID, extra ...primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids)+len(extra))
	out = append(out, ids...)
	return append(out, extra...)
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	apiErr, ok := err.(*errors.APIError)
	if !ok {
		t.Fatalf("err = %v (%T), want APIError with status %d", err, err, status)
	}
	if apiErr.Status != status {
		t.Fatalf("status = %d (%s), want %d", apiErr.Status, apiErr.Message, status)
	}
}

func TestConventionMembership(t *testing.T) {
	mt := newMockDB(t)
	ctx := context.Background()

	mt.Run("open attendee joins", func(mt *mtest.T) {
		mem := newMemCache()
		svc := NewConventionService(NewCollections(mt.DB), mem, time.Minute)
		owner, user := primitive.NewObjectID(), primitive.NewObjectID()
		conv := newConvention(owner, false)
		joined := *conv
		joined.Attendees = withIDs(conv.Attendees, user)

		mt.AddMockResponses(
			found(mt.T, conventionsNS, conv),
			modified(mt.T, joined),
			acknowledged(1),
		)
		got, err := svc.Apply(ctx, user, conv.ID, models.RoleAttendee)
		if err != nil {
			mt.Fatalf("Apply: %v", err)
		}
		if !models.ContainsID(got.Attendees, user) {
			mt.Fatalf("attendees = %v, want %s included", got.Attendees, user.Hex())
		}
		if len(mem.deleted) != 2 {
			mt.Fatalf("expected convention and user keys invalidated, got %v", mem.deleted)
		}
	})

	mt.Run("re-applying is a no-op", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		owner, user := primitive.NewObjectID(), primitive.NewObjectID()
		conv := newConvention(owner, false)
		conv.Attendees = withIDs(conv.Attendees, user)

		mt.AddMockResponses(found(mt.T, conventionsNS, conv))
		got, err := svc.Apply(ctx, user, conv.ID, models.RoleAttendee)
		if err != nil {
			mt.Fatalf("Apply: %v", err)
		}
		if len(got.Attendees) != 2 {
			mt.Fatalf("attendees = %v, want no duplicate", got.Attendees)
		}
	})

	mt.Run("exclusive convention queues application", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		owner, user := primitive.NewObjectID(), primitive.NewObjectID()
		conv := newConvention(owner, true)
		pending := *conv
		pending.AttendeeApplications = []primitive.ObjectID{user}

		mt.AddMockResponses(found(mt.T, conventionsNS, conv), modified(mt.T, pending))
		got, err := svc.Apply(ctx, user, conv.ID, models.RoleAttendee)
		if err != nil {
			mt.Fatalf("Apply: %v", err)
		}
		if models.ContainsID(got.Attendees, user) || !models.ContainsID(got.AttendeeApplications, user) {
			mt.Fatalf("expected a pending application, got %+v", got)
		}
	})

	mt.Run("approve without application", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		owner := primitive.NewObjectID()
		conv := newConvention(owner, true)

		mt.AddMockResponses(found(mt.T, conventionsNS, conv))
		_, err := svc.Decide(ctx, owner, conv.ID, primitive.NewObjectID(), models.RolePanelist, true)
		wantStatus(mt.T, err, http.StatusNotFound)
	})

	mt.Run("non-owner cannot decide", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		owner, applicant := primitive.NewObjectID(), primitive.NewObjectID()
		conv := newConvention(owner, true)
		conv.PanelistApplications = []primitive.ObjectID{applicant}

		mt.AddMockResponses(found(mt.T, conventionsNS, conv))
		_, err := svc.Decide(ctx, applicant, conv.ID, applicant, models.RolePanelist, true)
		wantStatus(mt.T, err, http.StatusForbidden)
	})

	mt.Run("last owner stays", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		owner := primitive.NewObjectID()
		conv := newConvention(owner, false)

		mt.AddMockResponses(found(mt.T, conventionsNS, conv))
		_, err := svc.RemoveOwner(ctx, owner, conv.ID, owner)
		wantStatus(mt.T, err, http.StatusBadRequest)
	})

	mt.Run("missing convention", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		mt.AddMockResponses(found(mt.T, conventionsNS))
		_, err := svc.Apply(ctx, primitive.NewObjectID(), primitive.NewObjectID(), models.RoleAttendee)
		wantStatus(mt.T, err, http.StatusNotFound)
	})
}

func TestConventionDelete(t *testing.T) {
	mt := newMockDB(t)
	ctx := context.Background()

	mt.Run("owner deletes and detaches", func(mt *mtest.T) {
		mem := newMemCache()
		svc := NewConventionService(NewCollections(mt.DB), mem, time.Minute)
		owner, panelist, follower := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
		taggedPost := primitive.NewObjectID()
		conv := newConvention(owner, false)
		conv.Panelists = []primitive.ObjectID{panelist}
		mem.entries[conventionKey(conv.ID.Hex())] = []byte("{}")
		mem.entries[userKey(follower.Hex())] = []byte("{}")
		mem.entries[postKey(taggedPost.Hex())] = []byte("{}")

		mt.AddMockResponses(
			found(mt.T, conventionsNS, conv),
			acknowledged(1), // delete
			found(mt.T, usersNS, bson.M{"_id": owner}, bson.M{"_id": follower}),
			acknowledged(2), // users
			found(mt.T, postsNS, bson.M{"_id": taggedPost}),
			acknowledged(1), // posts
		)
		if err := svc.Delete(ctx, owner, conv.ID); err != nil {
			mt.Fatalf("Delete: %v", err)
		}
		for _, key := range []string{
			conventionKey(conv.ID.Hex()),
			userKey(owner.Hex()),
			userKey(panelist.Hex()),
			userKey(follower.Hex()),
			postKey(taggedPost.Hex()),
		} {
			if !slices.Contains(mem.deleted, key) {
				mt.Fatalf("%s not invalidated: %v", key, mem.deleted)
			}
		}

		// Reads after the delete go to MongoDB, which no longer has it.
		mt.AddMockResponses(found(mt.T, conventionsNS), found(mt.T, conventionsNS))
		_, err := svc.GetConvention(ctx, conv.ID)
		wantStatus(mt.T, err, http.StatusNotFound)
		listed, err := svc.List(ctx, ConventionQuery{})
		if err != nil {
			mt.Fatalf("List: %v", err)
		}
		if len(listed) != 0 {
			mt.Fatalf("deleted convention still listed: %v", listed)
		}
	})

	mt.Run("non-owner is forbidden", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		conv := newConvention(primitive.NewObjectID(), false)
		mt.AddMockResponses(found(mt.T, conventionsNS, conv))
		err := svc.Delete(ctx, primitive.NewObjectID(), conv.ID)
		wantStatus(mt.T, err, http.StatusForbidden)
	})
}

func TestConventionCreateValidatesSchedule(t *testing.T) {
	svc := NewConventionService(Collections{}, NopCache{}, time.Minute)
	cases := []struct {
		name  string
		input ConventionInput
	}{
		{"end before start", ConventionInput{Name: "Expo", StartDate: "2026-06-02", EndDate: "2026-06-01", Online: true}},
		{"in person without address", ConventionInput{Name: "Expo", StartDate: "2026-06-01", EndDate: "2026-06-02"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), primitive.NewObjectID(), c.input)
			wantStatus(t, err, http.StatusBadRequest)
		})
	}
}

func TestConventionList(t *testing.T) {
	mt := newMockDB(t)

	mt.Run("tag filter is normalized", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		a, b := newConvention(primitive.NewObjectID(), false), newConvention(primitive.NewObjectID(), false)
		a.Tags, b.Tags = []string{"anime"}, []string{"anime", "games"}

		mt.AddMockResponses(found(mt.T, conventionsNS, a, b))
		got, err := svc.List(context.Background(), ConventionQuery{Tag: " Anime "})
		if err != nil {
			mt.Fatalf("List: %v", err)
		}
		if len(got) != 2 {
			mt.Fatalf("List returned %d conventions, want 2", len(got))
		}
		tag, _ := lastCommand(mt, "find").Lookup("filter", "tags").StringValueOK()
		if tag != "anime" {
			mt.Fatalf("tag filter = %q, want %q", tag, "anime")
		}
	})

	mt.Run("no filters", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		mt.AddMockResponses(found(mt.T, conventionsNS))
		got, err := svc.List(context.Background(), ConventionQuery{})
		if err != nil {
			mt.Fatalf("List: %v", err)
		}
		if len(got) != 0 {
			mt.Fatalf("List = %v, want none", got)
		}
		filter, _ := lastCommand(mt, "find").Lookup("filter").DocumentOK()
		if elems, _ := filter.Elements(); len(elems) != 0 {
			mt.Fatalf("filter = %v, want empty", filter)
		}
	})
}

func TestConventionUpdate(t *testing.T) {
	mt := newMockDB(t)
	ctx := context.Background()

	scheduled := func(owner primitive.ObjectID) *models.Convention {
		conv := newConvention(owner, false)
		conv.StartDate, conv.EndDate = "2026-06-01", "2026-06-03"
		conv.Address = "Hall 4"
		return conv
	}

	mt.Run("merged schedule is checked", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		owner := primitive.NewObjectID()
		conv := scheduled(owner)
		end := "2026-05-30"

		mt.AddMockResponses(found(mt.T, conventionsNS, conv))
		_, err := svc.Update(ctx, owner, conv.ID, ConventionPatch{EndDate: &end})
		wantStatus(mt.T, err, http.StatusBadRequest)
		if got := sent(mt); len(got) != 1 {
			mt.Fatalf("nothing should be written, got %v", got)
		}
	})

	mt.Run("going online clears the address", func(mt *mtest.T) {
		mem := newMemCache()
		svc := NewConventionService(NewCollections(mt.DB), mem, time.Minute)
		owner := primitive.NewObjectID()
		conv := scheduled(owner)
		online := true
		after := *conv
		after.Online, after.Address = true, ""

		mt.AddMockResponses(found(mt.T, conventionsNS, conv), modified(mt.T, after))
		got, err := svc.Update(ctx, owner, conv.ID, ConventionPatch{Online: &online})
		if err != nil {
			mt.Fatalf("Update: %v", err)
		}
		if !got.Online || got.Address != "" {
			mt.Fatalf("updated convention = %+v", got)
		}
		address, ok := lastCommand(mt, "findAndModify").Lookup("update", "$set", "address").StringValueOK()
		if !ok || address != "" {
			mt.Fatalf("address not cleared in update, got %q (set=%v)", address, ok)
		}
		if !slices.Contains(mem.deleted, conventionKey(conv.ID.Hex())) {
			mt.Fatalf("convention not invalidated: %v", mem.deleted)
		}
	})

	mt.Run("in person without address", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		owner := primitive.NewObjectID()
		conv := scheduled(owner)
		empty := ""

		mt.AddMockResponses(found(mt.T, conventionsNS, conv))
		_, err := svc.Update(ctx, owner, conv.ID, ConventionPatch{Address: &empty})
		wantStatus(mt.T, err, http.StatusBadRequest)
	})

	mt.Run("non-owner is forbidden", func(mt *mtest.T) {
		svc := NewConventionService(NewCollections(mt.DB), newMemCache(), time.Minute)
		conv := scheduled(primitive.NewObjectID())
		name := "Renamed"

		mt.AddMockResponses(found(mt.T, conventionsNS, conv))
		_, err := svc.Update(ctx, primitive.NewObjectID(), conv.ID, ConventionPatch{Name: &name})
		wantStatus(mt.T, err, http.StatusForbidden)
	})
}
