package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/unique-shop/internal/command"
	"github.com/example/unique-shop/internal/domain/cart"
	"github.com/example/unique-shop/internal/domain/inventory"
	"github.com/example/unique-shop/internal/domain/order"
)

var errBadRequest = errors.New("invalid JSON body")

type ErrorResponse struct {
	Error  string `json:"error"`
	Notice string `json:"notice,omitempty"`
}

// statusFor maps domain errors to HTTP status codes. Anything unknown is a 500
// and its message is not exposed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, cart.ErrItemUnavailable),
		errors.Is(err, inventory.ErrItemNotFound),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrNoActiveOrder),
		errors.Is(err, order.ErrInvalidToken),
		errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, order.ErrInvalidContact),
		errors.Is(err, command.ErrInvalidCommand),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrOrderAlreadyPaid),
		errors.Is(err, order.ErrOrderNotPaid),
		errors.Is(err, order.ErrOrderShipped),
		errors.Is(err, order.ErrOrderCanceled),
		errors.Is(err, order.ErrStatusConflict),
		errors.Is(err, order.ErrCheckoutPending):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadRequest
	}
	return nil
}
