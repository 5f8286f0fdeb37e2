package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vaultmarks/backend/internal/model"
	"github.com/vaultmarks/backend/internal/service"
)

type ConnectionHandler struct {
	svc         *service.ConnectionService
	stateSecret []byte
}

func NewConnectionHandler(svc *service.ConnectionService, stateSecret []byte) *ConnectionHandler {
	return &ConnectionHandler{svc: svc, stateSecret: stateSecret}
}

// Authorize godoc
// @Summary Begin linking the external directory account
// @Description Returns the provider's consent URL for the frontend to
// @Description redirect to.
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /api/v1/connections/{provider}/authorize [get]
func (h *ConnectionHandler) Authorize(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if c.Param("provider") != h.svc.Provider() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": h.svc.AuthCodeURL(h.signState(user.ID))})
}

// Callback godoc
// @Summary Complete the OAuth link
// @Description Exchanges the authorization code and stores the delegated
// @Description token pair for the user carried in the signed state.
// @Tags connections
// @Produce json
// @Success 200 {object} model.ConnectionResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/connections/{provider}/callback [get]
func (h *ConnectionHandler) Callback(c *gin.Context) {
	if c.Param("provider") != h.svc.Provider() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	code := c.Query("code")
	userID, ok := h.verifyState(c.Query("state"))
	if code == "" || !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback"})
		return
	}

	account, err := h.svc.CompleteLink(c.Request.Context(), userID, code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "link failed"})
		return
	}

	c.JSON(http.StatusOK, model.ConnectionResponse{
		Provider:       account.Provider,
		ExternalUserID: account.ExternalUserID,
		Connected:      true,
	})
}

// Status godoc
// @Summary Report whether the directory account is linked
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ConnectionResponse
// @Router /api/v1/connections/{provider} [get]
func (h *ConnectionHandler) Status(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if c.Param("provider") != h.svc.Provider() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	status, err := h.svc.Status(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// Disconnect godoc
// @Summary Unlink the directory account
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.StatusResponse
// @Router /api/v1/connections/{provider} [delete]
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if c.Param("provider") != h.svc.Provider() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	if err := h.svc.Disconnect(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "disconnected"})
}

// The OAuth state carries the linking user's id, HMAC-signed so the
// callback (which arrives without a bearer token) cannot be spoofed onto
// another account.
func (h *ConnectionHandler) signState(userID int64) string {
	payload := strconv.FormatInt(userID, 10)
	mac := hmac.New(sha256.New, h.stateSecret)
	mac.Write([]byte(payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return payload + "." + sig
}

func (h *ConnectionHandler) verifyState(state string) (int64, bool) {
	payload, sig, found := strings.Cut(state, ".")
	if !found {
		return 0, false
	}
	mac := hmac.New(sha256.New, h.stateSecret)
	mac.Write([]byte(payload))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return 0, false
	}
	userID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return 0, false
	}
	return userID, true
}
