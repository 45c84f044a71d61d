package middleware

import (
	"context"
	"net/http"
	"time"

	"conhub/services"
	"conhub/utils/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "AuthenticationState"

type contextKey string

const userIDKey contextKey = "userID"

// SessionMiddleware attaches the session user to the request context when a
// valid AuthenticationState cookie is present. With required set, requests
// without a valid session are rejected with 401.
func SessionMiddleware(sessions *services.SessionManager, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				if required {
					WriteError(w, errors.ErrUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			userID, err := sessions.Parse(cookie.Value)
			if err != nil {
				if required {
					ClearSession(w, false)
					WriteError(w, errors.ErrUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithUserID(ctx context.Context, userID primitive.ObjectID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the session user, if any.
func UserID(ctx context.Context) (primitive.ObjectID, bool) {
	userID, ok := ctx.Value(userIDKey).(primitive.ObjectID)
	return userID, ok && !userID.IsZero()
}

// StartSession issues a session token for userID and sets the cookie.
func StartSession(w http.ResponseWriter, sessions *services.SessionManager, userID primitive.ObjectID, secure bool) error {
	token, expires, err := sessions.Issue(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSession expires the session cookie.
func ClearSession(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
