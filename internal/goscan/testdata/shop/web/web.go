package web

import (
	"context"

	"example.com/shop/store"
)

// Handler serves one route.
type Handler interface {
	Handle(ctx context.Context) error
}

// OrderHandler lists orders.
type OrderHandler struct {
	repo store.Repository
}

func (h *OrderHandler) Handle(ctx context.Context) error { return nil }

// NewOrderHandler builds the handler.
func NewOrderHandler(repo store.Repository) (*OrderHandler, error) {
	return &OrderHandler{repo: repo}, nil
}

// Cache is shared between handlers.
//
//di:KeyedService("orders", ServiceLifetime.Singleton)
//di:Service<web.Handler>(ServiceLifetime.Transient)
type Cache struct{}

// Level is a plain value type.
type Level int

// Page is generic and never a candidate.
type Page[T any] struct {
	Items []T
}
