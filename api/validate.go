package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/horizons-db/archive-backend/errs"
)

const maxJSONBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return errs.NewMalformedPayloadError("request", err)
	}
	if len(body) > maxJSONBody {
		return errs.NewMaxBodySizeExceededError(maxJSONBody)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errs.NewInvalidJSONError(err)
	}
	return nil
}

// validateStruct turns the first validator failure into an invalid field error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errs.NewBadRequestError(err.Error())
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return errs.NewMissingRequiredFieldError(fe.Field())
	}
	reason := fe.Tag()
	if fe.Param() != "" {
		reason = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
	}
	return errs.NewInvalidFieldError(fe.Field(), reason)
}
