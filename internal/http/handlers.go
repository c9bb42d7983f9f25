package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/GooferByte/networth/internal/models"
	"github.com/GooferByte/networth/internal/pricing"
	"github.com/GooferByte/networth/internal/repository"
	"github.com/GooferByte/networth/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Router wires all handlers.
func Router(session *service.Session, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logMiddleware(logger))

	r.GET("/portfolio", func(c *gin.Context) {
		handlePortfolio(c, session)
	})
	r.POST("/portfolio/lots", func(c *gin.Context) {
		handleAddLot(c, session)
	})
	r.DELETE("/portfolio/lots/:symbol", func(c *gin.Context) {
		session.RemoveLot(c.Param("symbol"))
		c.Status(http.StatusNoContent)
	})
	r.POST("/portfolio/refresh", func(c *gin.Context) {
		handleRefresh(c, session)
	})
	r.GET("/quotes/:symbol", func(c *gin.Context) {
		handleQuote(c, session)
	})
	r.GET("/search", func(c *gin.Context) {
		handleSearch(c, session)
	})
	r.GET("/transactions", func(c *gin.Context) {
		handleListTransactions(c, session)
	})
	r.POST("/transactions", func(c *gin.Context) {
		handleAddTransaction(c, session)
	})
	r.GET("/networth", func(c *gin.Context) {
		handleNetWorth(c, session)
	})
	r.GET("/expenses/categories", func(c *gin.Context) {
		handleExpenseCategories(c, session)
	})
	return r
}

type lotRequest struct {
	Symbol        string `json:"symbol" binding:"required"`
	Shares        string `json:"shares" binding:"required"`
	PurchasedDate string `json:"purchasedDate"`
}

type transactionRequest struct {
	Type     string `json:"type" binding:"required,oneof=income expense"`
	Category string `json:"category"`
	Amount   string `json:"amount" binding:"required"`
	Date     string `json:"date"`
}

func handlePortfolio(c *gin.Context, svc *service.Session) {
	view := svc.Portfolio()
	resp := []gin.H{}
	for _, h := range view.Holdings {
		item := gin.H{
			"symbol":        h.Symbol,
			"shares":        h.Shares.String(),
			"purchasedDate": h.PurchasedDate.Format(models.DateLayout),
			"value":         h.Value.StringFixed(2),
		}
		if q := h.LatestQuote; q != nil {
			item["quote"] = quoteJSON(*q)
		}
		if h.FetchError != "" {
			item["error"] = h.FetchError
		}
		resp = append(resp, item)
	}
	c.JSON(http.StatusOK, gin.H{
		"lots":       resp,
		"totalValue": view.TotalValue.StringFixed(2),
		"refresh":    view.Refresh,
	})
}

func handleAddLot(c *gin.Context, svc *service.Session) {
	var req lotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	shares, err := decimal.NewFromString(req.Shares)
	if err != nil || shares.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shares must be a positive decimal string"})
		return
	}
	lot, err := svc.AddLot(c.Request.Context(), service.AddLotInput{
		Symbol:        req.Symbol,
		Shares:        shares,
		PurchasedDate: req.PurchasedDate,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrValidation) {
			status = http.StatusBadRequest
		}
		if errors.Is(err, service.ErrDuplicate) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"symbol":        lot.Symbol,
		"shares":        lot.Shares.String(),
		"purchasedDate": lot.PurchasedDate.Format(models.DateLayout),
	})
}

func handleRefresh(c *gin.Context, svc *service.Session) {
	report := svc.RefreshNow(c.Request.Context())
	failed := report.Failed
	if failed == nil {
		failed = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": report.Refreshed, "failed": failed})
}

func handleQuote(c *gin.Context, svc *service.Session) {
	q, err := svc.Quote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		c.JSON(fetchStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quoteJSON(q))
}

func handleSearch(c *gin.Context, svc *service.Session) {
	matches, err := svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": matches})
}

func handleListTransactions(c *gin.Context, svc *service.Session) {
	resp := []gin.H{}
	for _, tx := range svc.Transactions() {
		resp = append(resp, transactionJSON(tx))
	}
	c.JSON(http.StatusOK, gin.H{"transactions": resp})
}

func handleAddTransaction(c *gin.Context, svc *service.Session) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive decimal string"})
		return
	}
	tx, err := svc.AddTransaction(c.Request.Context(), service.AddTransactionInput{
		Type:     models.TransactionType(req.Type),
		Category: req.Category,
		Amount:   amount,
		Date:     req.Date,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrValidation) {
			status = http.StatusBadRequest
		}
		if errors.Is(err, repository.ErrDuplicateTransaction) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, transactionJSON(tx))
}

func handleNetWorth(c *gin.Context, svc *service.Session) {
	res := svc.NetWorth()
	resp := []gin.H{}
	for _, p := range res.Points {
		resp = append(resp, gin.H{
			"month":    p.Month,
			"netWorth": p.NetWorth.StringFixed(2),
		})
	}
	c.JSON(http.StatusOK, gin.H{"points": resp, "warnings": res.Warnings})
}

func handleExpenseCategories(c *gin.Context, svc *service.Session) {
	resp := []gin.H{}
	for _, ct := range svc.ExpenseBreakdown() {
		resp = append(resp, gin.H{
			"category": ct.Category,
			"total":    ct.Total.StringFixed(2),
		})
	}
	c.JSON(http.StatusOK, gin.H{"categories": resp})
}

func quoteJSON(q models.Quote) gin.H {
	return gin.H{
		"symbol":        q.Symbol,
		"price":         q.Price.StringFixed(2),
		"change":        q.Change.StringFixed(2),
		"changePercent": q.ChangePercent.StringFixed(2),
		"fetchedAt":     q.FetchedAt,
	}
}

func transactionJSON(tx models.TransactionRecord) gin.H {
	return gin.H{
		"id":       tx.ID,
		"type":     tx.Type,
		"category": tx.Category,
		"amount":   tx.Amount.StringFixed(2),
		"date":     tx.Date,
	}
}

func fetchStatus(err error) int {
	if errors.Is(err, service.ErrValidation) {
		return http.StatusBadRequest
	}
	var fe *pricing.FetchError
	if !errors.As(err, &fe) {
		return http.StatusInternalServerError
	}
	switch fe.Kind {
	case pricing.KindNotFound:
		return http.StatusNotFound
	case pricing.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func logMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		}).Info("request completed")
	}
}
