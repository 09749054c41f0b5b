package rpc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ggoodman/mcp-api-catalog/catalog"
	"github.com/ggoodman/mcp-api-catalog/internal/jsonrpc"
)

// toError maps a dispatch failure onto a JSON-RPC error object.
func toError(err error) *jsonrpc.Error {
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			messages = append(messages, ve.Field()+": "+formatValidationError(ve))
		}
		return jsonrpc.Errorf(jsonrpc.ErrorCodeInvalidParams, "invalid arguments: %s", strings.Join(messages, "; "))
	}

	if errors.Is(err, catalog.ErrNotFound) {
		return jsonrpc.Errorf(jsonrpc.ErrorCodeNotFound, "%s", err.Error())
	}

	return jsonrpc.Errorf(jsonrpc.ErrorCodeInternalError, "internal error: %s", err.Error())
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
