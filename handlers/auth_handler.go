package handlers

import (
	"net/http"

	"conhub/middleware"
	"conhub/services"
)

type AuthHandler struct {
	userService  *services.UserService
	sessions     *services.SessionManager
	secureCookie bool
}

type signupRequest struct {
	FirstName string `json:"firstName" validate:"required,max=50,personname"`
	LastName  string `json:"lastName" validate:"required,max=50,personname"`
	Username  string `json:"username" validate:"required,min=3,max=20,username"`
	Password  string `json:"password" validate:"required,min=8,max=64"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func NewAuthHandler(userService *services.UserService, sessions *services.SessionManager, secureCookie bool) *AuthHandler {
	return &AuthHandler{userService: userService, sessions: sessions, secureCookie: secureCookie}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input signupRequest
	if err := decodeBody(w, r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), input.FirstName, input.LastName, input.Username, input.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := middleware.StartSession(w, h.sessions, user.ID, h.secureCookie); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if err := decodeBody(w, r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}
	user, err := h.userService.Login(r.Context(), input.Username, input.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := middleware.StartSession(w, h.sessions, user.ID, h.secureCookie); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSession(w, h.secureCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Session reports the user behind the current cookie.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
