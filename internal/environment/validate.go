package environment

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MissingKeyError reports a required variable that is absent or invalid.
type MissingKeyError struct {
	Key     string
	Message string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// baseKeys are required by every command.
type baseKeys struct {
	DBType string `env:"DB_TYPE" validate:"required,oneof=postgres mysql"`
}

// Database holds the connection settings of the relational database.
type Database struct {
	Type     DBType `env:"DB_TYPE" validate:"required,oneof=postgres mysql"`
	User     string `env:"DB_USER" validate:"required"`
	Password string `env:"DB_PASSWORD" validate:"required"`
	Host     string `env:"DB_HOST" validate:"required,hostname_rfc1123|ip"`
	Port     string `env:"DB_PORT" validate:"required,numeric"`
	Name     string `env:"DB_NAME" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// Validate checks that DB_TYPE is set to a supported variant and that every
// key in extra is present.
func (e *Environment) Validate(extra ...string) error {
	var errs []error
	errs = append(errs, validationErrors(validate.Struct(baseKeys{DBType: e.Get(KeyDBType)}))...)

	for _, key := range extra {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := e.Lookup(key); !ok {
			errs = append(errs, &MissingKeyError{Key: key, Message: "is required"})
		}
	}
	return joinWithPath(e.path, errs)
}

// Database extracts and validates the relational connection settings.
func (e *Environment) Database() (Database, error) {
	db := Database{
		Type:     e.DBType(),
		User:     e.Get("DB_USER"),
		Password: e.Get("DB_PASSWORD"),
		Host:     e.Get("DB_HOST"),
		Port:     e.Get("DB_PORT"),
		Name:     e.Get("DB_NAME"),
	}
	if err := joinWithPath(e.path, validationErrors(validate.Struct(db))); err != nil {
		return Database{}, err
	}
	return db, nil
}

func validationErrors(err error) []error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{err}
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, &MissingKeyError{Key: fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "numeric":
		return fmt.Sprintf("must be numeric, got %q", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func joinWithPath(path string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	if path == "" {
		return fmt.Errorf("invalid environment: %w", err)
	}
	return fmt.Errorf("invalid environment in %s: %w", path, err)
}
