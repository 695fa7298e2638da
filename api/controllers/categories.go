package controllers

import (
	"net/http"

	"github.com/amezav/storefront-backend/api/responses"
	"github.com/amezav/storefront-backend/internal/categories"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
	"github.com/amezav/storefront-backend/pkg/logger"
)

// CategoryTree serves the full category hierarchy as nested nodes.
func CategoryTree(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "categories service unavailable"))
			return
		}

		tree, err := svc.Tree(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tree)
	}
}
