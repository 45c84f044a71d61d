package services

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"conhub/models"
	"conhub/utils/errors"
	"conhub/utils/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = errors.NewAPIError("INVALID_CREDENTIALS", "Invalid username or password", http.StatusUnauthorized)

// Register creates a new user
func (s *UserService) Register(ctx context.Context, firstName, lastName, username, password string) (*models.User, error) {
	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(firstName, lastName, username, passwordHash)

	result, err := s.cols.Users.InsertOne(ctx, user)
	if err != nil {
		return nil, errors.FromMongo(err, "username")
	}

	userID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, errors.NewAPIError("DB_ERROR", "Failed to get user ID after insertion", http.StatusInternalServerError)
	}
	user.ID = userID

	s.cache.store(ctx, userKey(userID.Hex()), user)
	logger.Info().Str("user_id", userID.Hex()).Str("username", username).Msg("User registered")
	return &user, nil
}

// Login checks the credentials and returns the matching user.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.cols.Users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errInvalidCredentials
		}
		return nil, errors.FromMongo(err, "user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	s.cache.store(ctx, userKey(user.ID.Hex()), user)
	return &user, nil
}

// SessionManager issues and verifies the signed session token stored in the
// AuthenticationState cookie.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl}
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a session token for the user and reports its expiry.
func (m *SessionManager) Issue(userID primitive.ObjectID) (string, time.Time, error) {
	expires := time.Now().Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.Hex(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "JWT_ERROR", "Failed to generate session", http.StatusInternalServerError)
	}
	return signed, expires, nil
}

// Parse validates a session token and returns the user it belongs to.
func (m *SessionManager) Parse(tokenString string) (primitive.ObjectID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewAPIError("INVALID_TOKEN", "Unexpected signing method", http.StatusUnauthorized)
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return primitive.NilObjectID, errors.ErrUnauthorized
	}
	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return primitive.NilObjectID, errors.ErrUnauthorized
	}
	return userID, nil
}
