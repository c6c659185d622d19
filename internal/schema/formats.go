package schema

import "github.com/go-playground/validator/v10"

// formats reuses the validator gin binds with; it is safe for concurrent use
var formats = validator.New(validator.WithRequiredStructEnabled())

func isEmail(s string) bool {
	return s != "" && formats.Var(s, "email") == nil
}

func isURL(s string) bool {
	return s != "" && formats.Var(s, "url") == nil
}
