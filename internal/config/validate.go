package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the model's structural constraints. Every violation is
// reported, one per line.
func Validate(m *Model) error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation failed: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("config validation failed:")
	for _, fe := range verrs {
		fmt.Fprintf(&sb, "\n- %s: failed on '%s'", strings.TrimPrefix(fe.Namespace(), "Model."), describe(fe))
	}
	return errors.New(sb.String())
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
