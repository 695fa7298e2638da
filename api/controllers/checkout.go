package controllers

import (
	"net/http"
	"strings"

	"github.com/amezav/storefront-backend/api/responses"
	"github.com/amezav/storefront-backend/api/validators"
	"github.com/amezav/storefront-backend/internal/checkout"
	"github.com/amezav/storefront-backend/pkg/enums"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
	"github.com/amezav/storefront-backend/pkg/logger"
	"github.com/amezav/storefront-backend/pkg/types"
)

type checkoutRequest struct {
	PaymentMethod   string         `json:"payment_method" validate:"required"`
	ShippingAddress *types.Address `json:"shipping_address,omitempty"`
}

// Checkout turns the caller's cart into an order, atomically committing
// stock for every line or failing the whole attempt.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.PaymentMethod))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.Execute(r.Context(), userID, checkout.CheckoutInput{
			PaymentMethod:   method,
			ShippingAddress: payload.ShippingAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithFields(r.Context(), map[string]any{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		})
		logg.Info(ctx, "checkout.completed")

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
