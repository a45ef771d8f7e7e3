package httpserver

import (
	"errors"
	"net/http"

	"agrofunnel/internal/domain"
	"agrofunnel/internal/tools"
	"github.com/gin-gonic/gin"
)

var (
	errRateLimited = &domain.Error{Kind: "rate_limited", Message: "too many requests, slow down"}
	errInternal    = &domain.Error{Kind: "internal", Message: "internal error"}
)

type envelope struct {
	Status  string           `json:"status"`
	Kind    domain.ErrorKind `json:"kind,omitempty"`
	Message string           `json:"message,omitempty"`
	Data    interface{}      `json:"data,omitempty"`
}

func writeData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Status: tools.StatusSuccess, Data: data})
}

func writeError(c *gin.Context, err error) {
	var e *domain.Error
	if !errors.As(err, &e) {
		e = errInternal
	}
	c.JSON(statusFor(e.Kind), envelope{Status: tools.StatusError, Kind: e.Kind, Message: e.Message})
}

// writeResult maps a tool envelope onto a REST response.
func writeResult(c *gin.Context, res tools.Result) {
	if res.Status == tools.StatusSuccess {
		c.JSON(http.StatusOK, res)
		return
	}
	c.JSON(statusFor(res.Kind), res)
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindCustomerNotFound, domain.KindProductNotFound, domain.KindUnknownTool:
		return http.StatusNotFound
	case domain.KindBusy:
		return http.StatusConflict
	case domain.KindPersistenceFailed:
		return http.StatusServiceUnavailable
	case errRateLimited.Kind:
		return http.StatusTooManyRequests
	case errInternal.Kind, "":
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}
