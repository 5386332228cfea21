package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ad-studio/internal/media"
	"ad-studio/internal/pkg/errs"
	"ad-studio/internal/review"
	"ad-studio/internal/script"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondMapped translates domain errors into HTTP statuses. Review rule
// violations are client errors; provider failures surface as bad gateway so
// the browser can offer a retry.
func RespondMapped(c *gin.Context, err error) {
	var (
		formatErr   *script.FormatError
		genErr      *review.GenerationError
		notReady    *review.NotReadyError
		incompatErr *media.IncompatibleMediaError
	)
	switch {
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, review.ErrUnknownScene):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, review.ErrInvalidSelection), errors.Is(err, review.ErrNotEdited),
		errors.Is(err, review.ErrNotConfirmed), errors.Is(err, errs.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, review.ErrSceneConfirmed), errors.Is(err, review.ErrSceneBusy):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.As(err, &notReady):
		RespondError(c, http.StatusConflict, "not_ready", err)
	case errors.As(err, &incompatErr):
		RespondError(c, http.StatusUnprocessableEntity, "incompatible_media", err)
	case errors.As(err, &formatErr):
		RespondError(c, http.StatusBadGateway, "bad_model_output", err)
	case errors.As(err, &genErr):
		RespondError(c, http.StatusBadGateway, "generation_failed", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
