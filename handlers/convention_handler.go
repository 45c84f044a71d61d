package handlers

import (
	"context"
	"net/http"
	"strconv"

	"conhub/middleware"
	"conhub/models"
	"conhub/services"
	"conhub/utils/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConventionHandler struct {
	conventionService *services.ConventionService
}

type conventionRequest struct {
	Name        string   `json:"name" validate:"required,notblank,max=100"`
	Tags        []string `json:"tags" validate:"max=10,dive,min=1,max=30,tag"`
	StartDate   string   `json:"startDate" validate:"required,isodate"`
	EndDate     string   `json:"endDate" validate:"required,isodate"`
	Description string   `json:"description" validate:"max=2000"`
	Online      bool     `json:"online"`
	Address     string   `json:"address" validate:"max=200"`
	Exclusive   bool     `json:"exclusive"`
}

type conventionPatchRequest struct {
	Name        *string  `json:"name" validate:"omitnil,notblank,max=100"`
	Tags        []string `json:"tags" validate:"max=10,dive,min=1,max=30,tag"`
	StartDate   *string  `json:"startDate" validate:"omitnil,isodate"`
	EndDate     *string  `json:"endDate" validate:"omitnil,isodate"`
	Description *string  `json:"description" validate:"omitnil,max=2000"`
	Online      *bool    `json:"online"`
	Address     *string  `json:"address" validate:"omitnil,max=200"`
	Exclusive   *bool    `json:"exclusive"`
}

type ConventionListResponse struct {
	Conventions []models.Convention `json:"conventions"`
	Count       int                 `json:"count"`
}

func NewConventionHandler(conventionService *services.ConventionService) *ConventionHandler {
	return &ConventionHandler{conventionService: conventionService}
}

func (h *ConventionHandler) ListConventions(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := services.ConventionQuery{
		Tag:    params.Get("tag"),
		Search: params.Get("q"),
	}
	if raw := params.Get("upcoming"); raw != "" {
		upcoming, err := strconv.ParseBool(raw)
		if err != nil {
			middleware.WriteError(w, errors.Invalid("upcoming must be true or false"))
			return
		}
		query.Upcoming = upcoming
	}
	limit, err := queryLimit(r, services.MaxPageSize)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	query.Limit = limit

	conventions, err := h.conventionService.List(r.Context(), query)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConventionListResponse{Conventions: conventions, Count: len(conventions)})
}

func (h *ConventionHandler) GetConvention(w http.ResponseWriter, r *http.Request) {
	conventionID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	convention, err := h.conventionService.GetConvention(r.Context(), conventionID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convention)
}

func (h *ConventionHandler) CreateConvention(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var input conventionRequest
	if err := decodeBody(w, r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}
	convention, err := h.conventionService.Create(r.Context(), userID, services.ConventionInput{
		Name:        input.Name,
		Tags:        input.Tags,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Description: input.Description,
		Online:      input.Online,
		Address:     input.Address,
		Exclusive:   input.Exclusive,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, convention)
}

func (h *ConventionHandler) UpdateConvention(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	conventionID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var input conventionPatchRequest
	if err := decodeBody(w, r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}
	convention, err := h.conventionService.Update(r.Context(), userID, conventionID, services.ConventionPatch{
		Name:        input.Name,
		Tags:        input.Tags,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Description: input.Description,
		Online:      input.Online,
		Address:     input.Address,
		Exclusive:   input.Exclusive,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convention)
}

func (h *ConventionHandler) DeleteConvention(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	conventionID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := h.conventionService.Delete(r.Context(), userID, conventionID); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Convention deleted"})
}

func (h *ConventionHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	conventionID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	user, err := h.conventionService.ToggleFollow(r.Context(), userID, conventionID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *ConventionHandler) Apply(w http.ResponseWriter, r *http.Request) {
	h.selfMembership(w, r, h.conventionService.Apply)
}

func (h *ConventionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.selfMembership(w, r, h.conventionService.Withdraw)
}

func (h *ConventionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *ConventionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *ConventionHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ids, ok := ownerAction(w, r)
	if !ok {
		return
	}
	role, err := roleVar(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	convention, err := h.conventionService.RemoveMember(r.Context(), ids.caller, ids.convention, ids.target, role)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convention)
}

func (h *ConventionHandler) AddOwner(w http.ResponseWriter, r *http.Request) {
	ids, ok := ownerAction(w, r)
	if !ok {
		return
	}
	convention, err := h.conventionService.AddOwner(r.Context(), ids.caller, ids.convention, ids.target)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convention)
}

func (h *ConventionHandler) RemoveOwner(w http.ResponseWriter, r *http.Request) {
	ids, ok := ownerAction(w, r)
	if !ok {
		return
	}
	convention, err := h.conventionService.RemoveOwner(r.Context(), ids.caller, ids.convention, ids.target)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convention)
}

type membershipFunc func(ctx context.Context, userID, conventionID primitive.ObjectID, role models.Role) (*models.Convention, error)

// selfMembership runs a transition the caller performs on their own
// membership.
func (h *ConventionHandler) selfMembership(w http.ResponseWriter, r *http.Request, transition membershipFunc) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	conventionID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	role, err := roleVar(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	convention, err := transition(r.Context(), userID, conventionID, role)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convention)
}

func (h *ConventionHandler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	ids, ok := ownerAction(w, r)
	if !ok {
		return
	}
	role, err := roleVar(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	convention, err := h.conventionService.Decide(r.Context(), ids.caller, ids.convention, ids.target, role, approve)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convention)
}

type ownerActionIDs struct {
	caller     primitive.ObjectID
	convention primitive.ObjectID
	target     primitive.ObjectID
}

// ownerAction reads the caller, the convention id and the target user id
// of an owner-only route, writing the error response itself on failure.
func ownerAction(w http.ResponseWriter, r *http.Request) (ownerActionIDs, bool) {
	var ids ownerActionIDs
	var err error
	if ids.caller, err = sessionUser(r); err != nil {
		middleware.WriteError(w, err)
		return ids, false
	}
	if ids.convention, err = pathID(r, "id"); err != nil {
		middleware.WriteError(w, err)
		return ids, false
	}
	if ids.target, err = pathID(r, "userId"); err != nil {
		middleware.WriteError(w, err)
		return ids, false
	}
	return ids, true
}
