package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/softpaws/petkeeper/game/wallet"
	mw "github.com/softpaws/petkeeper/middleware"
)

// WalletHandler handles wallet REST endpoints.
type WalletHandler struct {
	wallets *wallet.Service
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets *wallet.Service) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// Get handles GET /api/wallet.
func (h *WalletHandler) Get(c *gin.Context) {
	w, err := h.wallets.Get(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, w)
}
