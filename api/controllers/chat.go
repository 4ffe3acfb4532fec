package controllers

import (
	"net/http"

	"github.com/SohamFirke/pharma-backend/api/responses"
	"github.com/SohamFirke/pharma-backend/api/validators"
	"github.com/SohamFirke/pharma-backend/internal/routing"
	pkgerrors "github.com/SohamFirke/pharma-backend/pkg/errors"
	"github.com/SohamFirke/pharma-backend/pkg/logger"
)

type classifyRequest struct {
	Message string `json:"message" validate:"required"`
}

// ClassifyIntent routes a chat message into one of the supported intents. It
// never fulfills anything itself.
func ClassifyIntent(classifier routing.Classifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		classification, err := classifier.Classify(r.Context(), req.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "classify message"))
			return
		}

		responses.WriteSuccess(w, classification)
	}
}
