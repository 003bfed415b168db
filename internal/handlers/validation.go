package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
)

// bodyField names violations that concern the request body as a whole
const bodyField = "body"

// ParseDecodeErrors converts a JSON decoding error to field violations
func ParseDecodeErrors(err error) []apperrors.FieldViolation {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)

	switch {
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return []apperrors.FieldViolation{{Field: bodyField, Message: "Request body must be a JSON object"}}
		}
		return []apperrors.FieldViolation{{
			Field:   typeErr.Field,
			Message: typeErr.Field + " must be " + describeJSONType(typeErr.Type.Kind().String()),
		}}
	case errors.As(err, &syntaxErr):
		return []apperrors.FieldViolation{{Field: bodyField, Message: "Malformed JSON"}}
	case errors.Is(err, io.EOF):
		return []apperrors.FieldViolation{{Field: bodyField, Message: "Request body is empty"}}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return []apperrors.FieldViolation{{Field: bodyField, Message: "Malformed JSON"}}
	default:
		return []apperrors.FieldViolation{{Field: bodyField, Message: "Invalid request body"}}
	}
}

func describeJSONType(kind string) string {
	switch {
	case kind == "string":
		return "a string"
	case kind == "bool":
		return "a boolean"
	case strings.HasPrefix(kind, "int"), strings.HasPrefix(kind, "uint"), strings.HasPrefix(kind, "float"):
		return "a number"
	case kind == "struct", kind == "map":
		return "an object"
	default:
		return "a valid value"
	}
}
