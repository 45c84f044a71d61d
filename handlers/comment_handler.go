package handlers

import (
	"net/http"

	"conhub/middleware"
	"conhub/models"
	"conhub/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

type commentRequest struct {
	Text string `json:"text" validate:"required,notblank,max=500"`
}

type CommentListResponse struct {
	Comments []models.Comment `json:"comments"`
	Count    int              `json:"count"`
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) ListForPost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postId")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	comments, err := h.commentService.ListForPost(r.Context(), postID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CommentListResponse{Comments: comments, Count: len(comments)})
}

func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	postID, err := pathID(r, "postId")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var input commentRequest
	if err := decodeBody(w, r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}
	comment, err := h.commentService.Create(r.Context(), userID, postID, input.Text)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	commentID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var input commentRequest
	if err := decodeBody(w, r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}
	comment, err := h.commentService.UpdateText(r.Context(), userID, commentID, input.Text)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	commentID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := h.commentService.Delete(r.Context(), userID, commentID); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted"})
}

func (h *CommentHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	commentID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	comment, err := h.commentService.ToggleLike(r.Context(), userID, commentID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}
