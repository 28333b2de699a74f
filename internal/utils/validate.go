package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ms-booking/internal/apperrors"
)

const maxBodyBytes = 1 << 20

// DecodeAndValidate reads a JSON body into dst and runs struct validation on it.
func DecodeAndValidate(r *http.Request, v *validator.Validate, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperrors.Validation("invalid JSON payload")
	}
	if v == nil {
		return nil
	}
	return ValidateStruct(v, dst)
}

func ValidateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation(err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return apperrors.Validation("invalid fields: " + strings.Join(fields, ", "))
}

// NewValidator reports JSON field names instead of Go field names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}
