package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/certifast/certifast/internal/agencyctx"
	creditdomain "github.com/certifast/certifast/internal/credit/domain"
	"github.com/certifast/certifast/internal/providers/pdf"
)

func (s *Server) GetCreditBalance(c *gin.Context) {
	agencyID, ok := agencyctx.AgencyIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrAgencyRequired)
		return
	}

	resp, err := s.creditSvc.Balance(c.Request.Context(), agencyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeductCredits(c *gin.Context) {
	agencyID, ok := agencyctx.AgencyIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrAgencyRequired)
		return
	}

	var req creditdomain.DeductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.Deduct(c.Request.Context(), agencyID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCreditTransactions(c *gin.Context) {
	agencyID, ok := agencyctx.AgencyIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrAgencyRequired)
		return
	}

	var query struct {
		Type  string `form:"type"`
		Limit int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.Transactions(c.Request.Context(), agencyID, creditdomain.ListTransactionsRequest{
		Types: splitCSV(query.Type),
		Limit: query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReconcileCredits(c *gin.Context) {
	agencyID, ok := agencyctx.AgencyIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrAgencyRequired)
		return
	}

	resp, err := s.creditSvc.Reconcile(c.Request.Context(), agencyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetCreditReceipt renders a PDF receipt for a credit grant. Only
// purchases and subscription grants have receipts.
func (s *Server) GetCreditReceipt(c *gin.Context) {
	agencyID, ok := agencyctx.AgencyIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrAgencyRequired)
		return
	}

	txn, err := s.creditSvc.Transaction(c.Request.Context(), agencyID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if txn.Type != creditdomain.TypePurchase && txn.Type != creditdomain.TypeSubscriptionGrant {
		AbortWithError(c, newValidationError("id", "invalid_transaction_type", "receipts exist for credit grants only"))
		return
	}

	ag, err := s.agencySvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	description := strings.TrimSpace(txn.Description)
	if description == "" {
		description = receiptDescription(txn.Type)
	}

	doc, err := s.pdfSvc.GenerateReceipt(c.Request.Context(), pdf.ReceiptData{
		AgencyName:    ag.Name,
		AgencyEmail:   ag.Email,
		ReceiptNumber: txn.ID.String(),
		Reference:     txn.ReferenceID,
		DatePaid:      txn.CreatedAt.Format("2006-01-02"),
		Items: []pdf.ReceiptItem{
			{Description: description, Credits: txn.Amount},
		},
		Total: fmt.Sprintf("%d credits", txn.Amount),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", txn.ID.String()))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, doc)
}

func receiptDescription(txType string) string {
	switch txType {
	case creditdomain.TypeSubscriptionGrant:
		return "Monthly certificate credits"
	default:
		return "Certificate credit purchase"
	}
}

func isCreditValidationError(err error) bool {
	switch err {
	case creditdomain.ErrInvalidAgency,
		creditdomain.ErrInvalidID,
		creditdomain.ErrInvalidAmount,
		creditdomain.ErrInvalidType:
		return true
	default:
		return false
	}
}
