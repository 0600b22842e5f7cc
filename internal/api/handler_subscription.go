package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"push-relay-backend/internal/keys"
	"push-relay-backend/internal/model"
	"push-relay-backend/internal/store"
)

// Subscribe handles POST /subscription with uuid and service form fields.
func (h *Handler) Subscribe(c *gin.Context) {
	device := c.PostForm("uuid")
	if device == "" {
		abortWith(c, errMissingArg("uuid"))
		return
	}
	if !keys.ValidDevice(device) {
		abortWith(c, errInvalidClient)
		return
	}
	public := c.PostForm("service")
	if public == "" {
		abortWith(c, errMissingArg("service"))
		return
	}

	svc, ok := h.resolvePublic(c, public)
	if !ok {
		return
	}

	sub, err := h.store.Subscribe(c.Request.Context(), device, svc.ID)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateSubscription) {
			abortWith(c, errDuplicateSubscription)
		} else {
			abortInternal(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": model.RenderSubscription(sub)})
}

// ListSubscriptions handles GET /subscription?uuid=... .
func (h *Handler) ListSubscriptions(c *gin.Context) {
	device, ok := deviceParam(c)
	if !ok {
		return
	}

	subs, err := h.store.SubscriptionsForDevice(c.Request.Context(), device)
	if err != nil {
		abortInternal(c, err)
		return
	}

	views := make([]model.RenderedSubscription, 0, len(subs))
	for i := range subs {
		views = append(views, model.RenderSubscription(&subs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": views})
}

// Unsubscribe handles DELETE /subscription?uuid=...&service=... .
// Unsubscribing a pair that does not exist is an error, not a no-op.
func (h *Handler) Unsubscribe(c *gin.Context) {
	device, ok := deviceParam(c)
	if !ok {
		return
	}
	public := c.Query("service")
	if public == "" {
		abortWith(c, errMissingArg("service"))
		return
	}

	svc, ok := h.resolvePublic(c, public)
	if !ok {
		return
	}

	err := h.store.Unsubscribe(c.Request.Context(), device, svc.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			abortWith(c, errNotSubscribed)
		} else {
			abortInternal(c, err)
		}
		return
	}

	okResponse(c)
}

// deviceParam reads and validates the uuid query parameter, writing the
// error response itself when it fails.
func deviceParam(c *gin.Context) (string, bool) {
	device := c.Query("uuid")
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
