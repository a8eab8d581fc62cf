package handlers

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/interfaces/http/middleware"
	"multisig-hub.backend/internal/interfaces/http/response"
)

// requireOwner returns the authenticated owner or renders 401.
func requireOwner(c *gin.Context) (common.Address, bool) {
	owner, ok := middleware.GetOwner(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("Owner not authenticated"))
		return common.Address{}, false
	}
	return owner, true
}

func walletParam(c *gin.Context) (common.Address, bool) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		response.Error(c, domainerrors.InvalidInput(map[string]string{"address": "must be a 0x-prefixed 20-byte hex address"}, nil))
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func txIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("txId"), 10, 64)
	if err != nil {
		response.Error(c, domainerrors.InvalidInput(map[string]string{"txId": "must be a non-negative integer"}, err))
		return 0, false
	}
	return id, true
}
