package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Scrumble/middlewares"
	"Scrumble/utils/apperror"
)

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict, apperror.KindStateInvalid:
		return http.StatusConflict
	case apperror.KindUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusServiceUnavailable
	}
}

// respondError writes {"error", "code"}. Dependency failures hide their cause
// from the client and go to the log and Sentry instead.
func (server *Server) respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	code := apperror.CodeOf(err)
	message := "Service temporarily unavailable"

	if kind == apperror.KindDependencyFailure {
		server.Logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"code", code,
			"error", err,
		)
		middlewares.CaptureError(c, err)
	} else if ae, ok := apperror.As(err); ok {
		message = ae.Message
	}

	c.JSON(statusFor(kind), gin.H{"error": message, "code": code})
}
