// Package validation holds the declarative rule table applied to incoming payloads.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"recipeshare/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

var indexedSegment = regexp.MustCompile(`^(\w+)\[(\d+)\]$`)

// messages maps "<json field>.<rule>" to the message reported for a violation.
// Fields nested inside lists are keyed "<list>.<field>.<rule>" and receive the
// 1-based item number as their only format argument.
var messages = map[string]string{
	"title.required":        "Recipe title is required",
	"title.max":             "Title cannot exceed 100 characters",
	"description.required":  "Recipe description is required",
	"description.max":       "Description cannot exceed 500 characters",
	"prepTime.required":     "Preparation time is required",
	"prepTime.min":          "Prep time must be at least 1 minute",
	"cookTime.required":     "Cooking time is required",
	"cookTime.min":          "Cook time must be at least 1 minute",
	"servings.required":     "Number of servings is required",
	"servings.min":          "Must serve at least 1 person",
	"category.required":     "Recipe category is required",
	"category.category":     "Category must be one of: Appetizer, Main Course, Dessert, Beverage, Soup, Salad, Side Dish, Breakfast",
	"difficulty.difficulty": "Difficulty must be one of: Easy, Medium, Hard",
	"image.max":             "Image reference cannot exceed 500 characters",
	"tags.max":              "A tag cannot exceed 50 characters",

	"ingredients.name.required":         "Ingredient %d: name is required",
	"ingredients.amount.required":       "Ingredient %d: amount is required",
	"ingredients.unit.required":         "Ingredient %d: unit is required",
	"instructions.instruction.required": "Step %d: instruction text is required",

	"rating.required": "Rating is required",
	"rating.min":      "Rating must be between 1 and 5",
	"rating.max":      "Rating must be between 1 and 5",
	"comment.max":     "Comment cannot exceed 500 characters",

	"username.required": "Username is required",
	"username.min":      "Username must be at least 3 characters",
	"username.max":      "Username cannot exceed 30 characters",
	"username.username": "Username may only contain letters, numbers and underscores, and cannot start or end with an underscore",
	"email.required":    "Email is required",
	"email.email":       "Please enter a valid email",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
	"password.max":      "Password cannot exceed 128 characters",
	"bio.max":           "Bio cannot exceed 500 characters",
	"avatar.max":        "Avatar reference cannot exceed 500 characters",
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_]*[A-Za-z0-9])?$`)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return models.IsValidCategory(fl.Field().String())
		})
		_ = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
			return models.IsValidDifficulty(fl.Field().String())
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Struct evaluates every rule declared on s and returns a VALIDATION_ERROR
// listing all violations, or nil when s is valid.
func Struct(s any) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return models.NewValidationError(err.Error())
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, describe(fe))
	}
	return models.NewValidationErrors(out)
}

// describe renders one violation, preferring the rule table over the generic wording.
func describe(fe validator.FieldError) string {
	segments := strings.Split(fe.Namespace(), ".")
	// Drop the root struct name.
	if len(segments) > 1 {
		segments = segments[1:]
	}

	if len(segments) >= 2 {
		if m := indexedSegment.FindStringSubmatch(segments[len(segments)-2]); m != nil {
			key := m[1] + "." + fe.Field() + "." + fe.Tag()
			if msg, ok := messages[key]; ok {
				n, _ := strconv.Atoi(m[2])
				return fmt.Sprintf(msg, n+1)
			}
		}
	}

	field := fe.Field()
	if m := indexedSegment.FindStringSubmatch(field); m != nil {
		field = m[1]
	}
	if msg, ok := messages[field+"."+fe.Tag()]; ok {
		return msg
	}
	return field + " " + genericMessage(fe)
}

func genericMessage(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed the '%s=%s' rule", fe.Tag(), param)
		}
		return fmt.Sprintf("failed the '%s' rule", fe.Tag())
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
