package handlers

import (
	"net/http"

	"conhub/middleware"
	"conhub/models"
	"conhub/services"
	"conhub/utils/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostHandler struct {
	postService *services.PostService
}

type postRequest struct {
	Text       string   `json:"text" validate:"required,notblank,max=1000"`
	Images     []string `json:"images" validate:"max=4,dive,objectid"`
	Convention *string  `json:"convention" validate:"omitnil,objectid"`
}

type postTextRequest struct {
	Text string `json:"text" validate:"required,notblank,max=1000"`
}

type PostListResponse struct {
	Posts []models.Post `json:"posts"`
	Count int           `json:"count"`
}

func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// ListPosts serves the feed and the per-user and per-convention lists.
// The route variables "author" and "convention" narrow the query.
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	query := services.PostQuery{}

	author, err := optionalPathID(r, "author")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	query.Author = author

	convention, err := optionalPathID(r, "convention")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	query.Convention = convention

	before, err := queryID(r, "before")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	query.Before = before

	limit, err := queryLimit(r, services.MaxPageSize)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	query.Limit = limit

	posts, err := h.postService.List(r.Context(), query)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{Posts: posts, Count: len(posts)})
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	post, err := h.postService.GetPost(r.Context(), postID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var input postRequest
	if err := decodeBody(w, r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	images, err := validation.ObjectIDs(input.Images)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var convention *primitive.ObjectID
	if input.Convention != nil {
		id, err := validation.ObjectID(*input.Convention)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		convention = &id
	}

	post, err := h.postService.Create(r.Context(), userID, services.NewPostInput{
		Text:       input.Text,
		Images:     images,
		Convention: convention,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var input postTextRequest
	if err := decodeBody(w, r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}
	post, err := h.postService.UpdateText(r.Context(), userID, postID, input.Text)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := h.postService.Delete(r.Context(), userID, postID); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted"})
}

func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	post, err := h.postService.ToggleLike(r.Context(), userID, postID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	user, err := h.postService.ToggleBookmark(r.Context(), userID, postID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
