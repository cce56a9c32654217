package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	pulsewatch "github.com/pulsewatch/pulsewatch-go"
	"github.com/pulsewatch/pulsewatch-go/middleware"
	"github.com/pulsewatch/pulsewatch-go/trace"
)

var errOrderNotFound = errors.New("order not found")

type order struct {
	ID        string    `json:"id"`
	Item      string    `json:"item"`
	Quantity  int       `json:"quantity"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type createOrderRequest struct {
	Item     string  `json:"item" binding:"required"`
	Quantity int     `json:"quantity" binding:"required,min=1"`
	Amount   float64 `json:"amount"`
}

// orderService is an in-memory order store with simulated payment and
// inventory dependencies, instrumented end to end.
type orderService struct {
	sdk *pulsewatch.SDK

	mu          sync.RWMutex
	orders      map[string]*order
	totalAmount float64
}

func newOrderService(sdk *pulsewatch.SDK) *orderService {
	return &orderService{
		sdk:    sdk,
		orders: make(map[string]*order),
	}
}

func (s *orderService) register(router *gin.Engine) {
	router.POST("/orders", s.create)
	router.GET("/orders", s.list)
	router.GET("/orders/:id", s.get)
	router.DELETE("/orders/:id", s.cancel)
}

func (s *orderService) create(c *gin.Context) {
	logger := middleware.RequestLogger(c, s.sdk.Logger())

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o := &order{
		ID:        uuid.NewString(),
		Item:      req.Item,
		Quantity:  req.Quantity,
		Amount:    req.Amount,
		Status:    "created",
		CreatedAt: time.Now(),
	}

	ctx := c.Request.Context()
	if err := s.processPayment(ctx, o); err != nil {
		logger.Error("payment failed", zap.String("order_id", o.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment failed"})
		return
	}
	if err := s.reserveInventory(ctx, o); err != nil {
		logger.Error("inventory reservation failed", zap.String("order_id", o.ID), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.orders[o.ID] = o
	s.totalAmount += o.Amount
	total := s.totalAmount
	s.mu.Unlock()

	s.sdk.Metrics().IncrementCounter("orders.created", map[string]string{"item": o.Item})
	s.sdk.Metrics().RecordMetric("orders.total_amount", total, nil)
	logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("item", o.Item),
		zap.Int("quantity", o.Quantity))

	c.JSON(http.StatusCreated, o)
}

func (s *orderService) get(c *gin.Context) {
	s.mu.RLock()
	o, ok := s.orders[c.Param("id")]
	s.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errOrderNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *orderService) list(c *gin.Context) {
	s.mu.RLock()
	out := make([]*order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	s.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{"orders": out, "count": len(out)})
}

func (s *orderService) cancel(c *gin.Context) {
	logger := middleware.RequestLogger(c, s.sdk.Logger())

	s.mu.Lock()
	o, ok := s.orders[c.Param("id")]
	if ok {
		o.Status = "cancelled"
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errOrderNotFound.Error()})
		return
	}

	s.sdk.Metrics().IncrementCounter("orders.cancelled", map[string]string{"item": o.Item})
	logger.Info("order cancelled", zap.String("order_id", o.ID))

	c.JSON(http.StatusOK, o)
}

// processPayment simulates a payment provider call as a child span.
func (s *orderService) processPayment(ctx context.Context, o *order) error {
	return s.sdk.Tracer().Traced(ctx, "payment.process", trace.KindInternal,
		func(ctx context.Context) error {
			s.annotateCurrentSpan(ctx, "order.id", o.ID)
			time.Sleep(5 * time.Millisecond)
			return nil
		})
}

// reserveInventory simulates a stock check as a child span; quantities
// above 100 are rejected to exercise the error path.
func (s *orderService) reserveInventory(ctx context.Context, o *order) error {
	return s.sdk.Tracer().Traced(ctx, "inventory.reserve", trace.KindInternal,
		func(ctx context.Context) error {
			s.annotateCurrentSpan(ctx, "order.quantity", fmt.Sprintf("%d", o.Quantity))
			time.Sleep(2 * time.Millisecond)
			if o.Quantity > 100 {
				return fmt.Errorf("insufficient stock for %d units of %s", o.Quantity, o.Item)
			}
			return nil
		})
}

func (s *orderService) annotateCurrentSpan(ctx context.Context, key, value string) {
	if cell := trace.FromContext(ctx); cell != nil {
		if sc := cell.Current(); sc != nil {
			s.sdk.Tracer().SetSpanAttribute(sc.SpanID, key, value)
		}
	}
}
