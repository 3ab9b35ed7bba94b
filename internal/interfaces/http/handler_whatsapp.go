package http

import (
	"io"
	"net/http"

	"backoffice/internal/infrastructure"
	"backoffice/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetBotStatus is a one-shot status fetch.
func (h *Handler) GetBotStatus(c *gin.Context) {
	profile, _ := currentUser(c)
	view, err := h.panels.Status(c.Request.Context(), profile)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// StreamBotStatus pushes the panel state over SSE. The poller runs as long as
// at least one stream of the user is open, and the stream ends on logout.
func (h *Handler) StreamBotStatus(c *gin.Context) {
	profile, _ := currentUser(c)
	ctx := c.Request.Context()

	poller, release := h.panels.Acquire(profile)
	defer release()

	views := poller.Subscribe(ctx)
	sessions := h.auth.SessionEvents(ctx)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("status", poller.View())
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case view, ok := <-views:
			if !ok {
				return false
			}
			c.SSEvent("status", view)
			return true
		case evt, ok := <-sessions:
			if !ok {
				return false
			}
			if evt.UserID == profile.ID && evt.Profile == nil {
				c.SSEvent("logout", gin.H{"user_id": evt.UserID})
				return false
			}
			return true
		}
	})
	h.logger.Debug("status stream closed", zap.String("user_id", profile.ID))
}

func (h *Handler) GenerateQRCode(c *gin.Context) {
	profile, _ := currentUser(c)
	view, err := h.panels.GenerateQR(c.Request.Context(), profile)
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("qr request failed", zap.String("user_id", profile.ID), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": msg, "view": view})
		return
	}
	c.JSON(http.StatusAccepted, view)
}

// GetQRCodeImage serves the current QR code as an image.
func (h *Handler) GetQRCodeImage(c *gin.Context) {
	profile, _ := currentUser(c)
	view, err := h.panels.Status(c.Request.Context(), profile)
	if err != nil {
		h.fail(c, err)
		return
	}
	if view.QRCode == "" {
		if view.State == usecases.StateConnected {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}
	img, contentType, err := infrastructure.DecodeDataURI(view.QRCode)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to decode QR code")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, img)
}
