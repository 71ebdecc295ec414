package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
)

type subscriptionDates struct {
	StartDate       string `json:"startdate"`
	EndDate         string `json:"enddate"`
	NextPaymentDate string `json:"next_payment_date"`
}

type subscriptionDetail struct {
	*subscriptiondomain.Subscription
	InitialPayment decimal.Decimal   `json:"initial_payment"`
	Display        subscriptionDates `json:"display"`
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	args, err := subscriptiondomain.ParseListArgs(c.Request.URL.Query())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.subscriptionSvc.List(c.Request.Context(), args)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req subscriptiondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp == nil {
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) LookupSubscription(c *gin.Context) {
	var query struct {
		TransactionID string `form:"subscription_transaction_id"`
		Gateway       string `form:"gateway"`
		Environment   string `form:"gateway_environment"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(query.TransactionID) == "" {
		AbortWithError(c, newValidationError("subscription_transaction_id", "required", "subscription_transaction_id is required"))
		return
	}

	resp, err := s.subscriptionSvc.FindByTransaction(c.Request.Context(),
		strings.TrimSpace(query.TransactionID), strings.TrimSpace(query.Gateway), strings.TrimSpace(query.Environment))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSubscriptionByID(c *gin.Context) {
	subscription, ok := s.loadSubscription(c)
	if !ok {
		return
	}

	initial, err := s.subscriptionSvc.InitialPayment(c.Request.Context(), subscription)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	format := strings.TrimSpace(c.DefaultQuery("format", subscriptiondomain.FormatDateFormat))
	local, _ := strconv.ParseBool(c.DefaultQuery("local", "true"))

	start, _ := s.subscriptionSvc.StartDate(subscription, format, local)
	end, _ := s.subscriptionSvc.EndDate(subscription, format, local)
	next, _ := s.subscriptionSvc.NextPaymentDate(subscription, format, local)

	c.JSON(http.StatusOK, gin.H{"data": subscriptionDetail{
		Subscription:   subscription,
		InitialPayment: initial,
		Display: subscriptionDates{
			StartDate:       start,
			EndDate:         end,
			NextPaymentDate: next,
		},
	}})
}

func (s *Server) RefreshSubscription(c *gin.Context) {
	subscription, ok := s.loadSubscription(c)
	if !ok {
		return
	}

	updated, err := s.subscriptionSvc.Update(c.Request.Context(), subscription)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !updated {
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subscription})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	subscription, ok := s.loadSubscription(c)
	if !ok {
		return
	}

	gatewayOK, err := s.subscriptionSvc.Cancel(c.Request.Context(), subscription)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":              subscription,
		"gateway_cancelled": gatewayOK,
	})
}

func (s *Server) ListMySubscriptions(c *gin.Context) {
	s.listForUser(c, 0)
}

func (s *Server) ListUserSubscriptions(c *gin.Context) {
	userID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}
	s.listForUser(c, userID)
}

func (s *Server) listForUser(c *gin.Context, userID int64) {
	var levelIDs []int64
	if raw, ok := c.GetQuery("membership_level_id"); ok {
		for _, part := range splitCSV(raw) {
			id, err := parseID(part)
			if err != nil {
				AbortWithError(c, newValidationError("membership_level_id", "invalid_membership_level_id", "invalid membership_level_id"))
				return
			}
			levelIDs = append(levelIDs, id)
		}
	}

	var statuses []subscriptiondomain.Status
	if raw, ok := c.GetQuery("status"); ok {
		statuses = []subscriptiondomain.Status{}
		for _, part := range splitCSV(raw) {
			statuses = append(statuses, subscriptiondomain.Status(part))
		}
	}

	items, err := s.subscriptionSvc.ListForUser(c.Request.Context(), userID, levelIDs, statuses)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) loadSubscription(c *gin.Context) (*subscriptiondomain.Subscription, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return nil, false
	}

	subscription, err := s.subscriptionSvc.Load(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	if subscription == nil {
		AbortWithError(c, subscriptiondomain.ErrSubscriptionNotFound)
		return nil, false
	}
	return subscription, true
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidRequest
	}
	return id, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
