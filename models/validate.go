package models

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var fieldMessages = map[string]string{
	"Title.required":   "Title is required.",
	"Title.min":        "Title must be at least 3 characters long.",
	"Content.required": "Content is required.",
	"Content.min":      "Content must be at least 10 characters long.",
	"Date.datetime":    "Date must be an ISO-8601 timestamp.",
}

// ValidateInput applies the editor's rules to a post and returns one
// human readable error listing every violation
func ValidateInput(v *validator.Validate, in PostInput) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, " "))
}
