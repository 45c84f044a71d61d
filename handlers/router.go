package handlers

import (
	"net/http"

	"conhub/middleware"
	"conhub/services"

	"github.com/gorilla/mux"
)

// Handlers bundles every route handler the router mounts.
type Handlers struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Posts       *PostHandler
	Comments    *CommentHandler
	Conventions *ConventionHandler
	Payment     *PaymentHandler
	Images      *ImageHandler
}

const rolePattern = "{role:attendees|panelists}"

// NewRouter mounts the REST surface. Every route also accepts OPTIONS so the
// CORS middleware can answer preflight requests.
func NewRouter(h Handlers, sessions *services.SessionManager, allowedOrigins []string) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.ErrorMiddleware())
	r.Use(middleware.LoggerMiddleware)
	r.Use(middleware.CORSMiddleware(allowedOrigins))
	r.Use(middleware.SessionMiddleware(sessions, false))

	requireSession := middleware.SessionMiddleware(sessions, true)
	auth := func(fn http.HandlerFunc) http.Handler {
		return requireSession(fn)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, errNoRoute)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, errMethodNotAllowed)
	})

	// User routes
	users := r.PathPrefix("/users").Subrouter()
	users.HandleFunc("/signup", h.Auth.Signup).Methods("POST", "OPTIONS")
	users.HandleFunc("/login", h.Auth.Login).Methods("POST", "OPTIONS")
	users.HandleFunc("/logout", h.Auth.Logout).Methods("POST", "OPTIONS")
	users.Handle("/session", auth(h.Auth.Session)).Methods("GET", "OPTIONS")
	users.Handle("/me", auth(h.Users.UpdateProfile)).Methods("PATCH", "OPTIONS")
	users.Handle("/me", auth(h.Users.DeleteAccount)).Methods("DELETE")
	users.Handle("/me/bookmarks", auth(h.Users.Bookmarks)).Methods("GET", "OPTIONS")
	users.HandleFunc("/username/{username}", h.Users.GetByUsername).Methods("GET", "OPTIONS")
	users.HandleFunc("/{id}", h.Users.GetUser).Methods("GET", "OPTIONS")
	users.Handle("/{id}/follow", auth(h.Users.ToggleFollow)).Methods("POST", "OPTIONS")
	users.HandleFunc("/{id}/followers", h.Users.Followers).Methods("GET", "OPTIONS")
	users.HandleFunc("/{id}/following", h.Users.Following).Methods("GET", "OPTIONS")

	// Post routes
	posts := r.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", h.Posts.ListPosts).Methods("GET", "OPTIONS")
	posts.Handle("", auth(h.Posts.CreatePost)).Methods("POST")
	posts.HandleFunc("/user/{author}", h.Posts.ListPosts).Methods("GET", "OPTIONS")
	posts.HandleFunc("/convention/{convention}", h.Posts.ListPosts).Methods("GET", "OPTIONS")
	posts.HandleFunc("/{id}", h.Posts.GetPost).Methods("GET", "OPTIONS")
	posts.Handle("/{id}", auth(h.Posts.UpdatePost)).Methods("PATCH")
	posts.Handle("/{id}", auth(h.Posts.DeletePost)).Methods("DELETE")
	posts.Handle("/{id}/like", auth(h.Posts.ToggleLike)).Methods("POST", "OPTIONS")
	posts.Handle("/{id}/bookmark", auth(h.Posts.ToggleBookmark)).Methods("POST", "OPTIONS")

	// Comment routes
	comments := r.PathPrefix("/comments").Subrouter()
	comments.HandleFunc("/post/{postId}", h.Comments.ListForPost).Methods("GET", "OPTIONS")
	comments.Handle("/post/{postId}", auth(h.Comments.CreateComment)).Methods("POST")
	comments.Handle("/{id}", auth(h.Comments.UpdateComment)).Methods("PATCH", "OPTIONS")
	comments.Handle("/{id}", auth(h.Comments.DeleteComment)).Methods("DELETE")
	comments.Handle("/{id}/like", auth(h.Comments.ToggleLike)).Methods("POST", "OPTIONS")

	// Convention routes
	conventions := r.PathPrefix("/conventions").Subrouter()
	conventions.HandleFunc("", h.Conventions.ListConventions).Methods("GET", "OPTIONS")
	conventions.Handle("", auth(h.Conventions.CreateConvention)).Methods("POST")
	conventions.HandleFunc("/{id}", h.Conventions.GetConvention).Methods("GET", "OPTIONS")
	conventions.Handle("/{id}", auth(h.Conventions.UpdateConvention)).Methods("PATCH")
	conventions.Handle("/{id}", auth(h.Conventions.DeleteConvention)).Methods("DELETE")
	conventions.Handle("/{id}/follow", auth(h.Conventions.ToggleFollow)).Methods("POST", "OPTIONS")
	conventions.Handle("/{id}/owners/{userId}", auth(h.Conventions.AddOwner)).Methods("POST", "OPTIONS")
	conventions.Handle("/{id}/owners/{userId}", auth(h.Conventions.RemoveOwner)).Methods("DELETE")
	conventions.Handle("/{id}/"+rolePattern+"/apply", auth(h.Conventions.Apply)).Methods("POST", "OPTIONS")
	conventions.Handle("/{id}/"+rolePattern+"/withdraw", auth(h.Conventions.Withdraw)).Methods("POST", "OPTIONS")
	conventions.Handle("/{id}/"+rolePattern+"/{userId}/approve", auth(h.Conventions.Approve)).Methods("POST", "OPTIONS")
	conventions.Handle("/{id}/"+rolePattern+"/{userId}/reject", auth(h.Conventions.Reject)).Methods("POST", "OPTIONS")
	conventions.Handle("/{id}/"+rolePattern+"/{userId}", auth(h.Conventions.RemoveMember)).Methods("DELETE", "OPTIONS")

	// Payment routes
	payment := r.PathPrefix("/payment").Subrouter()
	payment.Handle("/balance", auth(h.Payment.Balance)).Methods("GET", "OPTIONS")
	payment.Handle("/topup", auth(h.Payment.TopUp)).Methods("POST", "OPTIONS")

	// Image routes
	images := r.PathPrefix("/image").Subrouter()
	images.Handle("/upload", auth(h.Images.Upload)).Methods("POST", "OPTIONS")
	images.HandleFunc("/{id}", h.Images.Serve).Methods("GET", "OPTIONS")

	return r
}
