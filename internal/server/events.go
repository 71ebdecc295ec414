package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
	"go.uber.org/zap"
)

// RecurringPaymentCompleted is called by gateway integrations after a
// renewal order has been recorded.
func (s *Server) RecurringPaymentCompleted(c *gin.Context) {
	var req subscriptiondomain.OrderRef
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.Gateway = strings.TrimSpace(req.Gateway)
	req.GatewayEnvironment = strings.TrimSpace(req.GatewayEnvironment)
	req.SubscriptionTransactionID = strings.TrimSpace(req.SubscriptionTransactionID)
	if req.Gateway == "" || req.GatewayEnvironment == "" || req.SubscriptionTransactionID == "" {
		AbortWithError(c, subscriptiondomain.ErrMissingGatewayKey)
		return
	}

	if err := s.subscriptionSvc.HandleRecurringPaymentCompleted(c.Request.Context(), req); err != nil {
		s.log.Warn("recurring payment event failed",
			zap.String("gateway", req.Gateway),
			zap.String("subscription_transaction_id", req.SubscriptionTransactionID),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"processed": true}})
}
