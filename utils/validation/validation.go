package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"conhub/utils/errors"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	personNamePattern = regexp.MustCompile(`^\p{L}[\p{L} '\-]*$`)
	usernamePattern   = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	tagPattern        = regexp.MustCompile(`^[A-Za-z0-9\-]+$`)
	amountPattern     = regexp.MustCompile(`^\d{1,5}(\.\d{1,2})?$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages match what the client sent.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "tag", func(fl validator.FieldLevel) bool {
		return tagPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "objectid", func(fl validator.FieldLevel) bool {
		return primitive.IsValidObjectID(fl.Field().String())
	})
	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "amount", func(fl validator.FieldLevel) bool {
		return amountPattern.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Struct validates a request body and returns a 400 APIError describing the
// first failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return errors.Invalid(formatFieldError(fieldErrs[0]))
	}
	return errors.Invalid(err.Error())
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return field + " must contain at least " + e.Param() + " items"
		}
		return field + " must be at least " + e.Param() + " characters"
	case "max":
		if e.Kind() == reflect.Slice {
			return field + " must contain at most " + e.Param() + " items"
		}
		return field + " must be at most " + e.Param() + " characters"
	case "notblank":
		return field + " must not be blank"
	case "personname":
		return field + " may only contain letters, spaces, apostrophes and hyphens"
	case "username":
		return field + " may only contain letters, digits and underscores"
	case "tag":
		return field + " may only contain letters, digits and hyphens"
	case "objectid":
		return field + " must be a valid id"
	case "isodate":
		return field + " must be an ISO date"
	case "amount":
		return field + " must be a positive amount with at most two decimals"
	case "oneof":
		return field + " must be one of: " + e.Param()
	default:
		return field + " validation failed: " + e.Tag()
	}
}

// ObjectID parses a hex id, failing with a 400.
func ObjectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errors.ErrInvalidID
	}
	return id, nil
}

// ObjectIDs parses every hex id in the list.
func ObjectIDs(hexes []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, hex := range hexes {
		id, err := ObjectID(hex)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// DateRange checks both dates parse and end is not before start.
func DateRange(start, end string) error {
	startAt, err := ParseDate(start)
	if err != nil {
		return errors.Invalid("startDate must be an ISO date")
	}
	endAt, err := ParseDate(end)
	if err != nil {
		return errors.Invalid("endDate must be an ISO date")
	}
	if endAt.Before(startAt) {
		return errors.Invalid("endDate must not be before startDate")
	}
	return nil
}

// NormalizeTags lower-cases, trims and de-duplicates tags, keeping the
// first occurrence order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
