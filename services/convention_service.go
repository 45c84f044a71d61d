package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"conhub/models"
	"conhub/utils/errors"
	"conhub/utils/logger"
	"conhub/utils/validation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConventionService struct {
	cols  Collections
	cache entityCache
}

// ConventionInput is a validated creation body.
type ConventionInput struct {
	Name        string
	Tags        []string
	StartDate   string
	EndDate     string
	Description string
	Online      bool
	Address     string
	Exclusive   bool
}

// ConventionPatch carries the optional fields of an edit.
type ConventionPatch struct {
	Name        *string
	Tags        []string
	StartDate   *string
	EndDate     *string
	Description *string
	Online      *bool
	Address     *string
	Exclusive   *bool
}

type ConventionQuery struct {
	Tag      string
	Search   string
	Upcoming bool
	Limit    int64
}

func NewConventionService(cols Collections, cache Cache, ttl time.Duration) *ConventionService {
	return &ConventionService{
		cols:  cols,
		cache: entityCache{cache: cache, ttl: ttl},
	}
}

// Create stores a new convention owned and attended by its creator.
func (s *ConventionService) Create(ctx context.Context, creatorID primitive.ObjectID, input ConventionInput) (*models.Convention, error) {
	if err := checkSchedule(input.StartDate, input.EndDate, input.Online, input.Address); err != nil {
		return nil, err
	}
	address := input.Address
	if input.Online {
		address = ""
	}

	convention := models.Convention{
		Name:                 input.Name,
		Tags:                 validation.NormalizeTags(input.Tags),
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		Description:          input.Description,
		Online:               input.Online,
		Address:              address,
		Exclusive:            input.Exclusive,
		Owners:               []primitive.ObjectID{creatorID},
		Panelists:            []primitive.ObjectID{},
		Attendees:            []primitive.ObjectID{creatorID},
		PanelistApplications: []primitive.ObjectID{},
		AttendeeApplications: []primitive.ObjectID{},
		CreatedAt:            time.Now().UTC(),
	}
	result, err := s.cols.Conventions.InsertOne(ctx, convention)
	if err != nil {
		return nil, errors.FromMongo(err, "convention")
	}
	convention.ID = result.InsertedID.(primitive.ObjectID)

	s.setAttendance(ctx, creatorID, convention.ID, attendanceAdd)
	logger.Info().Str("convention_id", convention.ID.Hex()).Str("owner", creatorID.Hex()).Msg("Convention created")
	return &convention, nil
}

// GetConvention retrieves a convention from the cache or MongoDB
func (s *ConventionService) GetConvention(ctx context.Context, conventionID primitive.ObjectID) (*models.Convention, error) {
	var convention models.Convention
	key := conventionKey(conventionID.Hex())
	if s.cache.load(ctx, key, &convention) {
		return &convention, nil
	}
	convention, err := s.fetch(ctx, conventionID)
	if err != nil {
		return nil, err
	}
	s.cache.store(ctx, key, convention)
	return &convention, nil
}

// fetch reads straight from MongoDB. Membership transitions decide on
// fresh state rather than a cached copy.
func (s *ConventionService) fetch(ctx context.Context, conventionID primitive.ObjectID) (models.Convention, error) {
	var convention models.Convention
	err := s.cols.Conventions.FindOne(ctx, bson.M{"_id": conventionID}).Decode(&convention)
	if err != nil {
		return models.Convention{}, errors.FromMongo(err, "convention")
	}
	return convention, nil
}

// List returns conventions ordered by start date.
func (s *ConventionService) List(ctx context.Context, query ConventionQuery) ([]models.Convention, error) {
	filter := bson.M{}
	if tag := strings.ToLower(strings.TrimSpace(query.Tag)); tag != "" {
		filter["tags"] = tag
	}
	if query.Search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(query.Search), Options: "i"}
	}
	if query.Upcoming {
		filter["endDate"] = bson.M{"$gte": time.Now().UTC().Format(time.DateOnly)}
	}
	limit := query.Limit
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	opts := options.Find().SetSort(bson.D{{Key: "startDate", Value: 1}, {Key: "_id", Value: 1}}).SetLimit(limit)
	cursor, err := s.cols.Conventions.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.FromMongo(err, "convention")
	}
	defer cursor.Close(ctx)

	conventions := []models.Convention{}
	if err := cursor.All(ctx, &conventions); err != nil {
		return nil, errors.FromMongo(err, "convention")
	}
	return conventions, nil
}

// Update applies an owner's edit. The merged result must still have a
// valid schedule and location.
func (s *ConventionService) Update(ctx context.Context, callerID, conventionID primitive.ObjectID, patch ConventionPatch) (*models.Convention, error) {
	current, err := s.fetch(ctx, conventionID)
	if err != nil {
		return nil, err
	}
	if !current.IsOwner(callerID) {
		return nil, errors.ErrForbidden
	}

	merged := current
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Tags != nil {
		set["tags"] = validation.NormalizeTags(patch.Tags)
	}
	if patch.StartDate != nil {
		merged.StartDate = *patch.StartDate
		set["startDate"] = *patch.StartDate
	}
	if patch.EndDate != nil {
		merged.EndDate = *patch.EndDate
		set["endDate"] = *patch.EndDate
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Online != nil {
		merged.Online = *patch.Online
		set["online"] = *patch.Online
	}
	if patch.Address != nil {
		merged.Address = *patch.Address
		set["address"] = *patch.Address
	}
	if patch.Exclusive != nil {
		set["exclusive"] = *patch.Exclusive
	}
	if len(set) == 0 {
		return &current, nil
	}
	if err := checkSchedule(merged.StartDate, merged.EndDate, merged.Online, merged.Address); err != nil {
		return nil, err
	}
	if merged.Online {
		set["address"] = ""
	}

	return s.findAndUpdate(ctx, conventionID, bson.M{"$set": set})
}

// Delete removes the convention, then best effort detaches it from users
// and posts.
func (s *ConventionService) Delete(ctx context.Context, callerID, conventionID primitive.ObjectID) error {
	current, err := s.fetch(ctx, conventionID)
	if err != nil {
		return err
	}
	if !current.IsOwner(callerID) {
		return errors.ErrForbidden
	}

	res, err := s.cols.Conventions.DeleteOne(ctx, bson.M{"_id": conventionID})
	if err != nil {
		return errors.FromMongo(err, "convention")
	}
	if res.DeletedCount == 0 {
		return errors.NotFound("convention")
	}
	s.cache.invalidate(ctx, conventionKey(conventionID.Hex()))

	linked := bson.M{"$or": bson.A{bson.M{"conventionsAttending": conventionID}, bson.M{"conventionsFollowing": conventionID}}}
	stale := cachedKeys(ctx, s.cols.Users, linked, userKey)
	for _, member := range append(append([]primitive.ObjectID{}, current.Attendees...), current.Panelists...) {
		stale = append(stale, userKey(member.Hex()))
	}
	if _, err := s.cols.Users.UpdateMany(ctx, linked,
		bson.M{"$pull": bson.M{"conventionsAttending": conventionID, "conventionsFollowing": conventionID}},
	); err != nil {
		logger.Error().Err(err).Str("convention_id", conventionID.Hex()).Msg("Failed to detach deleted convention from users")
	}

	tagged := bson.M{"convention": conventionID}
	stale = append(stale, cachedKeys(ctx, s.cols.Posts, tagged, postKey)...)
	if _, err := s.cols.Posts.UpdateMany(ctx, tagged,
		bson.M{"$unset": bson.M{"convention": ""}},
	); err != nil {
		logger.Error().Err(err).Str("convention_id", conventionID.Hex()).Msg("Failed to detach deleted convention from posts")
	}
	s.cache.invalidate(ctx, stale...)

	logger.Info().Str("convention_id", conventionID.Hex()).Msg("Convention deleted")
	return nil
}

// ToggleFollow adds the convention to the user's followed list or removes
// it, returning the refreshed user.
func (s *ConventionService) ToggleFollow(ctx context.Context, userID, conventionID primitive.ObjectID) (*models.User, error) {
	if _, err := s.GetConvention(ctx, conventionID); err != nil {
		return nil, err
	}
	var user models.User
	err := s.cols.Users.FindOne(ctx, bson.M{"_id": userID}, options.FindOne().SetProjection(bson.M{"conventionsFollowing": 1})).Decode(&user)
	if err != nil {
		return nil, errors.FromMongo(err, "user")
	}
	op := toggleOp(user.ConventionsFollowing, conventionID)
	return updateUser(ctx, s.cols.Users, s.cache, userID, bson.M{op: bson.M{"conventionsFollowing": conventionID}})
}

// Apply joins or applies to role for the caller.
func (s *ConventionService) Apply(ctx context.Context, userID, conventionID primitive.ObjectID, role models.Role) (*models.Convention, error) {
	current, err := s.fetch(ctx, conventionID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, &current, planApply(&current, userID, role))
}

// Withdraw removes the caller from role and any pending application.
func (s *ConventionService) Withdraw(ctx context.Context, userID, conventionID primitive.ObjectID, role models.Role) (*models.Convention, error) {
	current, err := s.fetch(ctx, conventionID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, &current, planWithdraw(&current, userID, role))
}

// Decide approves or rejects a pending application. Owners only.
func (s *ConventionService) Decide(ctx context.Context, callerID, conventionID, applicantID primitive.ObjectID, role models.Role, approve bool) (*models.Convention, error) {
	current, err := s.ownedBy(ctx, callerID, conventionID)
	if err != nil {
		return nil, err
	}
	change, err := planDecision(&current, applicantID, role, approve)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, &current, change)
}

// RemoveMember removes memberID from role on an owner's behalf.
func (s *ConventionService) RemoveMember(ctx context.Context, callerID, conventionID, memberID primitive.ObjectID, role models.Role) (*models.Convention, error) {
	current, err := s.ownedBy(ctx, callerID, conventionID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, &current, planWithdraw(&current, memberID, role))
}

func (s *ConventionService) AddOwner(ctx context.Context, callerID, conventionID, userID primitive.ObjectID) (*models.Convention, error) {
	current, err := s.ownedBy(ctx, callerID, conventionID)
	if err != nil {
		return nil, err
	}
	var exists models.User
	err = s.cols.Users.FindOne(ctx, bson.M{"_id": userID}, options.FindOne().SetProjection(bson.M{"_id": 1})).Decode(&exists)
	if err != nil {
		return nil, errors.FromMongo(err, "user")
	}
	return s.apply(ctx, &current, planAddOwner(&current, userID))
}

func (s *ConventionService) RemoveOwner(ctx context.Context, callerID, conventionID, ownerID primitive.ObjectID) (*models.Convention, error) {
	current, err := s.ownedBy(ctx, callerID, conventionID)
	if err != nil {
		return nil, err
	}
	change, err := planRemoveOwner(&current, ownerID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, &current, change)
}

func (s *ConventionService) ownedBy(ctx context.Context, callerID, conventionID primitive.ObjectID) (models.Convention, error) {
	current, err := s.fetch(ctx, conventionID)
	if err != nil {
		return models.Convention{}, err
	}
	if !current.IsOwner(callerID) {
		return models.Convention{}, errors.ErrForbidden
	}
	return current, nil
}

// apply writes a planned membership change and returns the refreshed
// convention. The user-side write follows the convention write and is
// best effort.
func (s *ConventionService) apply(ctx context.Context, current *models.Convention, change membershipChange) (*models.Convention, error) {
	if change.noop() {
		return current, nil
	}
	updated := current
	if change.update != nil {
		var err error
		updated, err = s.findAndUpdate(ctx, current.ID, change.update)
		if err != nil {
			return nil, err
		}
	}
	s.setAttendance(ctx, change.member, current.ID, change.attending)
	return updated, nil
}

func (s *ConventionService) setAttendance(ctx context.Context, userID, conventionID primitive.ObjectID, change attendance) {
	var op string
	switch change {
	case attendanceAdd:
		op = "$addToSet"
	case attendancePull:
		op = "$pull"
	default:
		return
	}
	_, err := s.cols.Users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{op: bson.M{"conventionsAttending": conventionID}})
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID.Hex()).Str("convention_id", conventionID.Hex()).Msg("Failed to update attendance")
		return
	}
	s.cache.invalidate(ctx, userKey(userID.Hex()))
}

func (s *ConventionService) findAndUpdate(ctx context.Context, conventionID primitive.ObjectID, update bson.M) (*models.Convention, error) {
	var convention models.Convention
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.cols.Conventions.FindOneAndUpdate(ctx, bson.M{"_id": conventionID}, update, opts).Decode(&convention)
	if err != nil {
		return nil, errors.FromMongo(err, "convention")
	}
	s.cache.invalidate(ctx, conventionKey(conventionID.Hex()))
	return &convention, nil
}

// checkSchedule validates the date range and that in-person conventions
// have an address.
func checkSchedule(startDate, endDate string, online bool, address string) error {
	if err := validation.DateRange(startDate, endDate); err != nil {
		return err
	}
	if !online && address == "" {
		return errors.Invalid("address is required for in-person conventions")
	}
	return nil
}
