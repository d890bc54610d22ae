package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tunestake/royalty-ledger/internal/allocation"
	apierrors "github.com/tunestake/royalty-ledger/internal/api/shared/errors"
	"github.com/tunestake/royalty-ledger/internal/domain"
	"github.com/tunestake/royalty-ledger/internal/ledger"
	"github.com/tunestake/royalty-ledger/internal/rates"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(message))
}

// respondConflict responds with a conflict error
func respondConflict(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusConflict, apierrors.NewConflictError(message, details...))
}

// respondInternalError responds with an internal server error
func respondInternalError(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message, details...))
}

// respondServiceError maps a service error to its HTTP status: semantic
// validation failures are 422, lost races and illegal transitions are 409,
// missing entities are 404, and anything unrecognized is 500 with the cause
// hidden from the client.
func respondServiceError(c *gin.Context, err error, fallback string) {
	var invalidRelease *ledger.InvalidReleaseError
	var notAllocated *allocation.NotFullyAllocatedError
	var negativeShare *allocation.NegativeShareError
	var negativeRate *rates.NegativeRateError
	var unknownMultiplier *rates.UnknownMultiplierError

	switch {
	case errors.Is(err, domain.ErrReleaseNotFound):
		respondNotFound(c, "Release not found")
	case errors.Is(err, domain.ErrPurchaseNotFound):
		respondNotFound(c, "Purchase not found")
	case errors.Is(err, domain.ErrDistributionNotFound):
		respondNotFound(c, "Distribution record not found")
	case errors.Is(err, domain.ErrInsufficientShares):
		respondConflict(c, "Not enough shares remaining")
	case errors.Is(err, domain.ErrPriceMismatch):
		respondConflict(c, "Paid amount does not match the current quote")
	case errors.Is(err, domain.ErrPurchaseReverted):
		respondConflict(c, "Purchase has already been reverted")
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrNoInvestorPool),
		errors.Is(err, domain.ErrInvalidEvent),
		errors.As(err, &invalidRelease),
		errors.As(err, &notAllocated),
		errors.As(err, &negativeShare),
		errors.As(err, &negativeRate),
		errors.As(err, &unknownMultiplier):
		respondValidationError(c, err.Error())
	default:
		respondInternalError(c, fallback)
	}
}
