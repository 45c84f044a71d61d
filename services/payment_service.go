package services

import (
	"context"
	"strconv"

	"conhub/models"
	"conhub/utils/errors"
	"conhub/utils/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxTopUp caps a single top-up.
const MaxTopUp = 10000

type PaymentService struct {
	cols  Collections
	cache entityCache
}

func NewPaymentService(cols Collections, cache Cache) *PaymentService {
	return &PaymentService{cols: cols, cache: entityCache{cache: cache}}
}

// Balance returns the user's balance as a decimal string, "0" if never
// topped up.
func (s *PaymentService) Balance(ctx context.Context, userID primitive.ObjectID) (string, error) {
	var user models.User
	opts := options.FindOne().SetProjection(bson.M{"balance": 1})
	if err := s.cols.Users.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&user); err != nil {
		return "", errors.FromMongo(err, "user")
	}
	return formatBalance(user.Balance), nil
}

// TopUp adds amount, a decimal string already checked for shape, to the
// user's balance and returns the new balance.
func (s *PaymentService) TopUp(ctx context.Context, userID primitive.ObjectID, amount string) (string, error) {
	value, err := parseAmount(amount)
	if err != nil {
		return "", err
	}

	var user models.User
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"balance": 1})
	err = s.cols.Users.FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$inc": bson.M{"balance": value}}, opts).Decode(&user)
	if err != nil {
		return "", errors.FromMongo(err, "user")
	}
	s.cache.invalidate(ctx, userKey(userID.Hex()))

	balance := formatBalance(user.Balance)
	logger.Info().Str("user_id", userID.Hex()).Str("amount", amount).Str("balance", balance).Msg("Balance topped up")
	return balance, nil
}

// parseAmount checks the range and converts to Decimal128 so the stored
// balance never picks up binary floating point error.
func parseAmount(amount string) (primitive.Decimal128, error) {
	f, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return primitive.Decimal128{}, errors.Invalid("amount must be a number")
	}
	if f <= 0 {
		return primitive.Decimal128{}, errors.Invalid("amount must be greater than zero")
	}
	if f > MaxTopUp {
		return primitive.Decimal128{}, errors.Invalid("amount must not exceed " + strconv.Itoa(MaxTopUp))
	}
	value, err := primitive.ParseDecimal128(amount)
	if err != nil {
		return primitive.Decimal128{}, errors.Invalid("amount must be a decimal number")
	}
	return value, nil
}

func formatBalance(balance *primitive.Decimal128) string {
	if balance == nil {
		return "0"
	}
	return balance.String()
}
