// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/realmsync/realmsync/pkg/extensions"
	"github.com/realmsync/realmsync/services/realmd/datatypes"
)

// Products handles GET /v1/billing/products.
func (h *Handlers) Products(c *gin.Context) {
	products, err := h.Billing.Products(c.Request.Context())
	if err != nil {
		respondBillingError(c, err)
		return
	}
	if products == nil {
		products = []extensions.Product{}
	}
	c.JSON(http.StatusOK, products)
}

// Checkout handles POST /v1/billing/checkout and returns a provider-hosted
// checkout link for the requested product.
func (h *Handlers) Checkout(c *gin.Context) {
	var req datatypes.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%s: %w", err.Error(), datatypes.ErrValidation))
		return
	}

	link, err := h.Billing.CheckoutLink(c.Request.Context(), caller(c).UserID, req.ProductID)
	if err != nil {
		respondBillingError(c, err)
		return
	}
	h.audit(c, "billing.checkout", "product", req.ProductID, "success")
	c.JSON(http.StatusOK, gin.H{"url": link})
}

// Portal handles GET /v1/billing/portal and returns the provider-hosted
// account management link.
func (h *Handlers) Portal(c *gin.Context) {
	link, err := h.Billing.PortalLink(c.Request.Context(), caller(c).UserID)
	if err != nil {
		respondBillingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link})
}

func respondBillingError(c *gin.Context, err error) {
	if errors.Is(err, extensions.ErrBillingDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing is not configured"})
		return
	}
	respondError(c, err)
}
