package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	goAccount "github.com/MrEthical07/goAccount"
)

func writeError(c *gin.Context, err error) {
	var codeErr *goAccount.InvalidCodeError
	if errors.As(err, &codeErr) {
		remaining := codeErr.Remaining
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid code", RemainingAttempts: &remaining})
		return
	}

	switch goAccount.Category(err) {
	case goAccount.CategoryValidation:
		c.JSON(http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
	case goAccount.CategoryUnauthenticated:
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case goAccount.CategoryNotFound:
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case goAccount.CategoryRateLimited:
		c.JSON(http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "server error"})
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, goAccount.ErrInvalidEmail):
		return "invalid email"
	case errors.Is(err, goAccount.ErrEmailTaken):
		return "email already registered"
	case errors.Is(err, goAccount.ErrPasswordPolicy):
		return "password rejected"
	case errors.Is(err, goAccount.ErrNameInvalid):
		return "invalid name"
	case errors.Is(err, goAccount.ErrTokenKindInvalid):
		return "invalid token kind"
	}
	return "invalid request"
}
