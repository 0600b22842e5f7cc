package api

import (
	"push-relay-backend/internal/dispatch"
	"push-relay-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store         store.Store
	dispatcher    *dispatch.Dispatcher
	brokerAddress string
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, d *dispatch.Dispatcher, brokerAddress string) *Handler {
	return &Handler{
		store:         s,
		dispatcher:    d,
		brokerAddress: brokerAddress,
	}
}
