package form

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/seif-emam/deveolp-network/internal/catalog/images"
)

// DefaultMaxImageBytes is the largest accepted image.
const DefaultMaxImageBytes int64 = 5 * 1024 * 1024

const (
	MsgInvalidImageType = "Please select a valid image file (JPEG, PNG, GIF, etc.)"
	MsgImageTooLarge    = "Image size must be less than 5MB"
	MsgImageRequired    = "Image is required"
)

// ValidationError lists the fields that failed validation with a message each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid product update: %s", strings.Join(names, ", "))
}

var fieldMessages = map[string]map[string]string{
	"title": {
		"required": "Title is required",
		"min":      "Title must be at least 3 characters",
	},
	"price": {
		"gt":     "Price must be greater than 0",
		"finite": "Price must be a valid number",
	},
	"category": {
		"required": "Category is required",
	},
	"description": {
		"required": "Description is required",
		"min":      "Description must be at least 10 characters",
	},
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// strconv accepts "Inf", which gt=0 lets through
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	})
	return v
}

// validateInput checks in without touching the network.
func validateInput(v *validator.Validate, in Input, maxImageBytes int64) error {
	fields := make(map[string]string)

	if err := v.Struct(in); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		for _, fieldErr := range validationErrors {
			msg, ok := fieldMessages[fieldErr.Field()][fieldErr.Tag()]
			if !ok {
				msg = "failed on rule: " + fieldErr.Tag()
			}
			fields[fieldErr.Field()] = msg
		}
	}

	if msg := validateImage(in, maxImageBytes); msg != "" {
		fields["image"] = msg
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateImage(in Input, maxImageBytes int64) string {
	if in.Upload == nil {
		if strings.TrimSpace(in.ExistingImage) == "" {
			return MsgImageRequired
		}
		return ""
	}
	if !isImage(in.Upload) {
		return MsgInvalidImageType
	}
	if in.Upload.Size > maxImageBytes || int64(len(in.Upload.Data)) > maxImageBytes {
		return MsgImageTooLarge
	}
	return ""
}

// isImage checks the declared type and, when content is present, the sniffed type.
func isImage(u *images.Upload) bool {
	if !strings.HasPrefix(strings.ToLower(u.ContentType), "image/") {
		return false
	}
	if len(u.Data) == 0 {
		return true
	}
	return strings.HasPrefix(mimetype.Detect(u.Data).String(), "image/")
}
