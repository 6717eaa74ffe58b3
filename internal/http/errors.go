package httpx

import (
	"errors"
	"net/http"

	"github.com/bulkhaus/bulk-ui-api/internal/data"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

// writeServiceError maps service and repository errors onto HTTP
// responses. Sentinels get specific codes; anything unrecognised falls
// back to a 500 with the given error code.
func writeServiceError(w http.ResponseWriter, err error, fallbackCode string) {
	switch {
	case errors.Is(err, data.ErrProductNotFound),
		errors.Is(err, data.ErrCategoryNotFound),
		errors.Is(err, data.ErrOrderNotFound),
		errors.Is(err, data.ErrCartItemNotFound),
		errors.Is(err, data.ErrStockAlertRuleNotFound),
		errors.Is(err, ports.ErrProfileNotFound):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
	case errors.Is(err, data.ErrCategorySlugExists):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "slug_exists", Err: err})
	case errors.Is(err, data.ErrInsufficientStock):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "insufficient_stock", Err: err})
	case errors.Is(err, data.ErrInvalidOrderTransition):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "invalid_transition", Err: err})
	case errors.Is(err, model.ErrEmptyCart):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "empty_cart", Err: err})
	default:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: fallbackCode, Err: err})
	}
}

// writeCredentialError renders a classified credential failure. These
// are expected outcomes of login/registration, not server faults.
func writeCredentialError(w http.ResponseWriter, ce *ports.CredentialError) {
	switch ce.Kind {
	case ports.CredentialInvalid:
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "invalid_credentials", Err: ce})
	case ports.CredentialUnconfirmed:
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "confirmation_required", Err: ce})
	case ports.CredentialExists:
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "already_registered", Err: ce})
	case ports.CredentialSuspended:
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "account_suspended", Err: ce})
	default:
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "identity_unavailable", Err: ce})
	}
}
