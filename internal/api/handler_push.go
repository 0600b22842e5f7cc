package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"push-relay-backend/internal/keys"
	"push-relay-backend/internal/store"
)

// Push registration endpoints. Registering twice replaces the old
// registration; unregistering something that does not exist is an error.
// Registrations are independent of subscriptions: they decide which
// devices get pushed to, not what a device is entitled to read.

// RegisterGateway handles POST /gcm with uuid and regId form fields.
func (h *Handler) RegisterGateway(c *gin.Context) {
	device, ok := registrationDevice(c)
	if !ok {
		return
	}
	token := c.PostForm("regId")
	if token == "" {
		abortWith(c, errMissingArg("regId"))
		return
	}

	if err := h.store.RegisterGateway(c.Request.Context(), device, token); err != nil {
		abortInternal(c, err)
		return
	}
	okResponse(c)
}

// UnregisterGateway handles DELETE /gcm.
func (h *Handler) UnregisterGateway(c *gin.Context) {
	h.unregister(c, h.store.UnregisterGateway)
}

// RegisterMqtt handles POST /mqtt. The device uuid itself becomes the
// broker topic, so no token is needed.
func (h *Handler) RegisterMqtt(c *gin.Context) {
	device, ok := registrationDevice(c)
	if !ok {
		return
	}

	if err := h.store.RegisterMqtt(c.Request.Context(), device); err != nil {
		abortInternal(c, err)
		return
	}
	okResponse(c)
}

// UnregisterMqtt handles DELETE /mqtt.
func (h *Handler) UnregisterMqtt(c *gin.Context) {
	h.unregister(c, h.store.UnregisterMqtt)
}

// GetBrokerAddress handles GET /mqtt so clients can discover which broker
// to subscribe to.
func (h *Handler) GetBrokerAddress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"broker_address": h.brokerAddress})
}

// RegisterWebPush handles POST /webpush with uuid, endpoint, p256dh and
// auth form fields.
func (h *Handler) RegisterWebPush(c *gin.Context) {
	device, ok := registrationDevice(c)
	if !ok {
		return
	}
	endpoint := c.PostForm("endpoint")
	if endpoint == "" {
		abortWith(c, errMissingArg("endpoint"))
		return
	}
	p256dh := c.PostForm("p256dh")
	if p256dh == "" {
		abortWith(c, errMissingArg("p256dh"))
		return
	}
	auth := c.PostForm("auth")
	if auth == "" {
		abortWith(c, errMissingArg("auth"))
		return
	}

	if err := h.store.RegisterWebPush(c.Request.Context(), device, endpoint, p256dh, auth); err != nil {
		abortInternal(c, err)
		return
	}
	okResponse(c)
}

// UnregisterWebPush handles DELETE /webpush.
func (h *Handler) UnregisterWebPush(c *gin.Context) {
	h.unregister(c, h.store.UnregisterWebPush)
}

func (h *Handler) unregister(c *gin.Context, remove func(ctx context.Context, device string) error) {
	device, ok := registrationDevice(c)
	if !ok {
		return
	}

	err := remove(c.Request.Context(), device)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			abortWith(c, errRegistrationNotFound)
		} else {
			abortInternal(c, err)
		}
		return
	}
	okResponse(c)
}

// registrationDevice reads the device uuid from the form body or, for
// DELETEs sent without one, the query string.
func registrationDevice(c *gin.Context) (string, bool) {
	device := c.PostForm("uuid")
	if device == "" {
		device = c.Query("uuid")
	}
	if device == "" {
		abortWith(c, errMissingArg("uuid"))
		return "", false
	}
	if !keys.ValidDevice(device) {
		abortWith(c, errInvalidClient)
		return "", false
	}
	return device, true
}
