package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vaultmarks/backend/internal/db"
	"github.com/vaultmarks/backend/internal/model"
	"github.com/vaultmarks/backend/internal/service"
)

type VaultHandler struct {
	vaults *service.VaultService
	access *service.AccessService
}

func NewVaultHandler(vaults *service.VaultService, access *service.AccessService) *VaultHandler {
	return &VaultHandler{vaults: vaults, access: access}
}

// Create godoc
// @Summary Create a vault
// @Tags vaults
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreateVaultRequest true "Vault settings"
// @Success 200 {object} model.VaultResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /api/v1/vaults [post]
func (h *VaultHandler) Create(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req model.CreateVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	vault, err := h.vaults.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		writeVaultError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.VaultResponseFrom(vault))
}

// List godoc
// @Summary List vaults owned by or shared with the current user
// @Tags vaults
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.VaultResponse
// @Router /api/v1/vaults [get]
func (h *VaultHandler) List(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	vaults, err := h.vaults.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	out := make([]model.VaultResponse, 0, len(vaults))
	for i := range vaults {
		out = append(out, model.VaultResponseFrom(&vaults[i]))
	}
	c.JSON(http.StatusOK, out)
}

// UpdateAccessSettings godoc
// @Summary Change a vault's gating configuration (owner only)
// @Tags vaults
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Vault slug"
// @Param request body model.UpdateVaultAccessRequest true "New gate"
// @Success 200 {object} model.StatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/vaults/{slug}/access-settings [patch]
func (h *VaultHandler) UpdateAccessSettings(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	vault, ok := h.lookupVault(c)
	if !ok {
		return
	}

	var req model.UpdateVaultAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.vaults.UpdateAccessSettings(c.Request.Context(), vault, user.ID, req); err != nil {
		writeVaultError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "updated"})
}

// ResolveAccess godoc
// @Summary Resolve whether the caller may open a vault
// @Description Anonymous callers are allowed; non-public vaults deny them
// @Description with reason "unauthorized". Denials include a remedy hint.
// @Tags vaults
// @Produce json
// @Param slug path string true "Vault slug"
// @Success 200 {object} model.AccessDecisionResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/vaults/{slug}/access [get]
func (h *VaultHandler) ResolveAccess(c *gin.Context) {
	vault, ok := h.lookupVault(c)
	if !ok {
		return
	}

	var userID *int64
	if user := GetAuthUser(c); user != nil {
		userID = &user.ID
	}

	decision, err := h.access.Resolve(c.Request.Context(), vault, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, model.AccessDecisionResponseFrom(decision))
}

// Join godoc
// @Summary Join a password-gated vault
// @Description A correct password grants durable membership. Joining an
// @Description already joined vault succeeds.
// @Tags vaults
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Vault slug"
// @Param request body model.JoinVaultRequest true "Vault password"
// @Success 200 {object} model.StatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 422 {object} model.ErrorResponse
// @Router /api/v1/vaults/{slug}/join [post]
func (h *VaultHandler) Join(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	vault, ok := h.lookupVault(c)
	if !ok {
		return
	}

	var req model.JoinVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.access.Join(c.Request.Context(), vault, user.ID, req.Password); err != nil {
		writeVaultError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "joined"})
}

// Subscribe godoc
// @Summary Subscribe to a public vault
// @Tags vaults
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Vault slug"
// @Success 200 {object} model.StatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/vaults/{slug}/subscribe [post]
func (h *VaultHandler) Subscribe(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	vault, ok := h.lookupVault(c)
	if !ok {
		return
	}

	if err := h.access.Subscribe(c.Request.Context(), vault, user.ID); err != nil {
		writeVaultError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "subscribed"})
}

// Unsubscribe godoc
// @Summary Leave a vault
// @Tags vaults
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Vault slug"
// @Success 200 {object} model.StatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/vaults/{slug}/subscribe [delete]
func (h *VaultHandler) Unsubscribe(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	vault, ok := h.lookupVault(c)
	if !ok {
		return
	}

	if err := h.access.Unsubscribe(c.Request.Context(), vault, user.ID); err != nil {
		writeVaultError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "unsubscribed"})
}

func (h *VaultHandler) lookupVault(c *gin.Context) (*model.Vault, bool) {
	vault, err := h.vaults.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if db.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "vault not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		}
		return nil, false
	}
	return vault, true
}

func writeVaultError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "slug already exists"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrNotPasswordVault):
		c.JSON(http.StatusBadRequest, gin.H{"error": "vault is not password gated"})
	case errors.Is(err, service.ErrNotPublicVault):
		c.JSON(http.StatusBadRequest, gin.H{"error": "vault is not public"})
	case errors.Is(err, service.ErrOwnerMembership):
		c.JSON(http.StatusBadRequest, gin.H{"error": "owners cannot change their own membership"})
	case errors.Is(err, service.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
	case errors.Is(err, service.ErrVaultMisconfigured):
		// Owner error, not a wrong password: surfaced distinctly so the
		// caller can tell the owner to fix the vault.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "vault is misconfigured: password gate has no password"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}
