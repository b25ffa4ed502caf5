package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/user"
)

// apiError is an error with a fixed HTTP status and client-facing message.
type apiError struct {
	status  int
	message string
	fields  map[string]string
}

func (e *apiError) Error() string { return e.message }

func badRequest(msg string) *apiError {
	return &apiError{status: http.StatusBadRequest, message: msg}
}

var errRouteNotFound = &apiError{status: http.StatusNotFound, message: "route not found"}

// toAPIError maps domain errors to HTTP statuses. Unknown errors become 500.
func toAPIError(err error) *apiError {
	var (
		ae         *apiError
		ve         validator.ValidationErrors
		stockErr   *order.InsufficientStockError
		missingErr *order.ProductNotFoundError
		trErr      *order.InvalidTransitionError
	)
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.As(err, &ve):
		return &apiError{
			status:  http.StatusUnprocessableEntity,
			message: "validation failed",
			fields:  fieldErrors(ve),
		}
	case errors.As(err, &stockErr):
		return &apiError{
			status:  http.StatusConflict,
			message: stockErr.Error(),
			fields: map[string]string{
				stockErr.ProductID: fmt.Sprintf("requested %d, available %d", stockErr.Requested, stockErr.Available),
			},
		}
	case errors.As(err, &missingErr):
		return &apiError{status: http.StatusNotFound, message: missingErr.Error()}
	case errors.As(err, &trErr):
		return &apiError{status: http.StatusBadRequest, message: trErr.Error()}
	case errors.Is(err, order.ErrEmptyCart):
		return &apiError{status: http.StatusBadRequest, message: err.Error()}
	case errors.Is(err, order.ErrTransactionConflict):
		return &apiError{status: http.StatusConflict, message: "the request conflicted with a concurrent update, please retry"}
	case errors.Is(err, order.ErrAlreadyRefunded),
		errors.Is(err, cart.ErrItemExists),
		errors.Is(err, user.ErrEmailTaken):
		return &apiError{status: http.StatusConflict, message: err.Error()}
	case errors.Is(err, order.ErrInvalidPaymentStatus),
		errors.Is(err, order.ErrAmountTooLarge),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, product.ErrInvalid),
		errors.Is(err, user.ErrInvalidStatus):
		return &apiError{status: http.StatusUnprocessableEntity, message: err.Error()}
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, user.ErrNotFound):
		return &apiError{status: http.StatusNotFound, message: err.Error()}
	case errors.Is(err, auth.ErrUnauthorized):
		return &apiError{status: http.StatusUnauthorized, message: err.Error()}
	case errors.Is(err, auth.ErrForbidden):
		return &apiError{status: http.StatusForbidden, message: err.Error()}
	default:
		return &apiError{status: http.StatusInternalServerError, message: "internal server error"}
	}
}

// writeError writes {"code":...,"message":...,"errors":{...}}. Internal
// errors are logged and their details hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := toAPIError(err)
	if ae.status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("code")
	e.Int(ae.status)
	e.FieldStart("message")
	e.Str(ae.message)
	e.FieldStart("errors")
	e.ObjStart()
	for k, v := range ae.fields {
		e.FieldStart(k)
		e.Str(v)
	}
	e.ObjEnd()
	e.ObjEnd()

	writeJSON(w, ae.status, e.Bytes())
}
