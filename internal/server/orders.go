package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	orderdomain "github.com/certifast/certifast/internal/order/domain"
)

type listOrdersQuery struct {
	Status        string `form:"status"`
	ServiceType   string `form:"service_type"`
	ProviderID    string `form:"provider_id"`
	PropertyID    string `form:"property_id"`
	CustomerID    string `form:"customer_id"`
	ScheduledFrom string `form:"scheduled_from"`
	ScheduledTo   string `form:"scheduled_to"`
	Search        string `form:"search"`
	Limit         int    `form:"limit"`
}

func (q listOrdersQuery) toRequest() orderdomain.ListOrderRequest {
	return orderdomain.ListOrderRequest{
		Statuses:      splitCSV(q.Status),
		ServiceTypes:  splitCSV(q.ServiceType),
		ProviderID:    strings.TrimSpace(q.ProviderID),
		PropertyID:    strings.TrimSpace(q.PropertyID),
		CustomerID:    strings.TrimSpace(q.CustomerID),
		ScheduledFrom: strings.TrimSpace(q.ScheduledFrom),
		ScheduledTo:   strings.TrimSpace(q.ScheduledTo),
		Search:        strings.TrimSpace(q.Search),
		Limit:         q.Limit,
	}
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req orderdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query listOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), query.toRequest())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrderCalendar(c *gin.Context) {
	var query listOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Calendar(c.Request.Context(), query.toRequest())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrderByID(c *gin.Context) {
	resp, err := s.orderSvc.GetByID(c.Request.Context(), orderdomain.GetOrderRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionOrder(c *gin.Context) {
	var req orderdomain.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.OrderID = strings.TrimSpace(c.Param("id"))

	resp, err := s.orderSvc.Transition(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrderHistory(c *gin.Context) {
	resp, err := s.orderSvc.History(c.Request.Context(), orderdomain.GetOrderRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isOrderValidationError(err error) bool {
	switch err {
	case orderdomain.ErrInvalidAgency,
		orderdomain.ErrInvalidID,
		orderdomain.ErrInvalidStatus,
		orderdomain.ErrInvalidDate,
		orderdomain.ErrMissingField:
		return true
	default:
		return false
	}
}
