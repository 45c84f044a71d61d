package handlers

import (
	"context"
	"net/http"

	"conhub/middleware"
	"conhub/models"
	"conhub/services"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserHandler struct {
	userService  *services.UserService
	postService  *services.PostService
	secureCookie bool
}

type profileRequest struct {
	FirstName *string `json:"firstName" validate:"omitnil,min=1,max=50,personname"`
	LastName  *string `json:"lastName" validate:"omitnil,min=1,max=50,personname"`
	Username  *string `json:"username" validate:"omitnil,min=3,max=20,username"`
	Bio       *string `json:"bio" validate:"omitnil,max=300"`
	Password  *string `json:"password" validate:"omitnil,min=8,max=64"`
}

type UserListResponse struct {
	Users []models.UserSummary `json:"users"`
	Count int                  `json:"count"`
}

func NewUserHandler(userService *services.UserService, postService *services.PostService, secureCookie bool) *UserHandler {
	return &UserHandler{
		userService:  userService,
		postService:  postService,
		secureCookie: secureCookie,
	}
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	viewer, _ := middleware.UserID(r.Context())
	writeJSON(w, http.StatusOK, publicUser(user, viewer))
}

func (h *UserHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	viewer, _ := middleware.UserID(r.Context())
	writeJSON(w, http.StatusOK, publicUser(user, viewer))
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var input profileRequest
	if err := decodeBody(w, r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, services.ProfileUpdate{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Username:  input.Username,
		Bio:       input.Bio,
		Password:  input.Password,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := h.userService.DeleteUser(r.Context(), userID); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.ClearSession(w, h.secureCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

func (h *UserHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	targetID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	user, err := h.userService.ToggleFollow(r.Context(), userID, targetID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Followers(w http.ResponseWriter, r *http.Request) {
	h.listRelations(w, r, h.userService.Followers)
}

func (h *UserHandler) Following(w http.ResponseWriter, r *http.Request) {
	h.listRelations(w, r, h.userService.Following)
}

func (h *UserHandler) listRelations(w http.ResponseWriter, r *http.Request, list func(context.Context, primitive.ObjectID) ([]models.UserSummary, error)) {
	userID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	users, err := list(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{Users: users, Count: len(users)})
}

func (h *UserHandler) Bookmarks(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	posts, err := h.postService.Bookmarks(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{Posts: posts, Count: len(posts)})
}
