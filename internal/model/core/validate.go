package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPayload is returned when an inbound payload fails validation.
var ErrInvalidPayload = errors.New("invalid payload")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a decoded payload against its struct tags.
// Slices are validated element by element.
func Validate(v any) error {
	switch p := v.(type) {
	case []Driver:
		for i := range p {
			if err := validatorInstance().Struct(&p[i]); err != nil {
				return fmt.Errorf("%w: driver %d: %v", ErrInvalidPayload, i, err)
			}
		}
		return nil
	default:
		if err := validatorInstance().Struct(v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return nil
	}
}
