package plugin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hytalede/statistics/internal/dispatch"
	"github.com/hytalede/statistics/internal/domain"
	"github.com/hytalede/statistics/internal/httphelper"
)

type statisticsHandler struct {
	plugin *Plugin
}

// NewHandler registers the status routes for plugin on engine.
func NewHandler(engine *gin.Engine, plugin *Plugin) {
	handler := statisticsHandler{plugin: plugin}

	engine.GET("/health", handler.onHealth())
	engine.GET("/status", handler.onStatus())
	engine.POST("/send", handler.onSend())
}

func (h statisticsHandler) onHealth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (h statisticsHandler) onStatus() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, h.plugin.Status())
	}
}

type sendResponse struct {
	dispatch.SendResult

	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

func (h statisticsHandler) onSend() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var (
			outcome  Result
			reqCtx   = ctx.Request.Context()
			endpoint = h.plugin.Status().Endpoint
		)

		select {
		case outcome = <-h.plugin.SendOnceNowAsync(reqCtx):
		case <-reqCtx.Done():
			httphelper.SetError(ctx, httphelper.NewAPIError(http.StatusServiceUnavailable,
				errors.Join(reqCtx.Err(), httphelper.ErrSendFailed)))

			return
		}

		if outcome.Err != nil {
			httphelper.SetError(ctx, httphelper.NewAPIErrorf(sendErrorStatus(outcome.Err),
				errors.Join(outcome.Err, httphelper.ErrSendFailed), "%s", dispatch.ClassifyError(outcome.Err, endpoint).Message))

			return
		}

		verdict := dispatch.Classify(outcome.Result, endpoint)

		ctx.JSON(http.StatusOK, sendResponse{
			SendResult: outcome.Result,
			Accepted:   verdict.Accepted,
			Message:    verdict.Message,
		})
	}
}

func sendErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrConfigValidation), errors.Is(err, domain.ErrConfigMissing),
		errors.Is(err, domain.ErrConfigRead):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
