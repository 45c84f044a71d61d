package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"conhub/middleware"
	"conhub/models"
	"conhub/utils/errors"
	"conhub/utils/validation"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBodyBytes = 1 << 20

var (
	errNoRoute          = errors.NewAPIError("NOT_FOUND", "Route not found", http.StatusNotFound)
	errMethodNotAllowed = errors.NewAPIError("METHOD_NOT_ALLOWED", "Method not allowed", http.StatusMethodNotAllowed)
)

// decodeBody reads a JSON body into dst and runs its validate tags.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.Invalid("request body is empty")
		}
		return errors.NewAPIError(errors.ErrInvalidInput.Code, "Invalid request body", http.StatusBadRequest, err.Error())
	}
	return validation.Struct(dst)
}

// pathID parses the named route variable as an ObjectID.
func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	return validation.ObjectID(mux.Vars(r)[name])
}

// optionalPathID parses the named route variable when the route has one.
func optionalPathID(r *http.Request, name string) (*primitive.ObjectID, error) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		return nil, nil
	}
	id, err := validation.ObjectID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// queryID parses an optional ObjectID query parameter.
func queryID(r *http.Request, name string) (*primitive.ObjectID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := validation.ObjectID(raw)
	if err != nil {
		return nil, errors.Invalid(name + " must be a valid id")
	}
	return &id, nil
}

// queryLimit parses an optional limit in [1, upper].
func queryLimit(r *http.Request, upper int) (int64, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > upper {
		return 0, errors.Invalid("limit must be between 1 and " + strconv.Itoa(upper))
	}
	return int64(limit), nil
}

// sessionUser returns the authenticated user id. Routes mounted behind the
// required session middleware always have one.
func sessionUser(r *http.Request) (primitive.ObjectID, error) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		return primitive.NilObjectID, errors.ErrUnauthorized
	}
	return userID, nil
}

func roleVar(r *http.Request) (models.Role, error) {
	role := models.Role(mux.Vars(r)["role"])
	if !role.Valid() {
		return "", errors.Invalid("role must be attendees or panelists")
	}
	return role, nil
}

// publicUser strips fields only the account holder may see.
func publicUser(user *models.User, viewer primitive.ObjectID) *models.User {
	if user.ID == viewer {
		return user
	}
	shaped := *user
	shaped.Balance = nil
	return &shaped
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	middleware.WriteJSON(w, status, v)
}
