package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator, shared by every request type
// in the API (CreateUserRequest, ContactRequest, the login and request_email
// bodies). Custom type registrations must be made during init() before the
// first call to Struct.
var v = validator.New()

// Struct validates s against its validate tags and flattens the result into
// a single human-readable error, suitable for a 400 response body.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
