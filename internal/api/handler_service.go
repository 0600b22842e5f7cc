package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"push-relay-backend/internal/keys"
	"push-relay-backend/internal/model"
	"push-relay-backend/internal/store"
)

// CreateService handles POST /service: a publisher registers a new
// identity and gets the generated key pair back.
func (h *Handler) CreateService(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		abortWith(c, errMissingArg("name"))
		return
	}
	icon := c.PostForm("icon")

	svc, err := h.store.CreateService(c.Request.Context(), name, icon)
	if err != nil {
		abortInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"service": model.RenderService(svc, true)})
}

// GetService handles GET /service?service=... or ?secret=... . The secret
// is echoed back only to a caller that presented it.
func (h *Handler) GetService(c *gin.Context) {
	if secret := c.Query("secret"); secret != "" {
		svc, ok := h.resolveSecret(c, secret)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"service": model.RenderService(svc, true)})
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
	c.JSON(http.StatusOK, gin.H{"service": model.RenderService(svc, false)})
}

// UpdateService handles PATCH /service?secret=... with optional name/icon
// form fields.
func (h *Handler) UpdateService(c *gin.Context) {
	secret := secretParam(c)
	if secret == "" {
		abortWith(c, errMissingArg("secret"))
		return
	}
	if !keys.ValidSecret(secret) {
		abortWith(c, errInvalidSecret)
		return
	}

	var name, icon *string
	if v, ok := c.GetPostForm("name"); ok {
		name = &v
	}
	if v, ok := c.GetPostForm("icon"); ok {
		icon = &v
	}

	svc, err := h.store.UpdateService(c.Request.Context(), secret, name, icon)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			abortWith(c, errServiceNotFound)
		} else {
			abortInternal(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"service": model.RenderService(svc, false)})
}

// DeleteService handles DELETE /service?secret=... and cascades to the
// service's messages and subscriptions.
func (h *Handler) DeleteService(c *gin.Context) {
	secret := secretParam(c)
	if secret == "" {
		abortWith(c, errMissingArg("secret"))
		return
	}
	if !keys.ValidSecret(secret) {
		abortWith(c, errInvalidSecret)
		return
	}

	err := h.store.DeleteService(c.Request.Context(), secret)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			abortWith(c, errServiceNotFound)
		} else {
			abortInternal(c, err)
		}
		return
	}

	okResponse(c)
}

// resolveSecret validates and resolves a secret key, writing the error
// response itself when it fails.
func (h *Handler) resolveSecret(c *gin.Context, secret string) (*model.Service, bool) {
	if !keys.ValidSecret(secret) {
		abortWith(c, errInvalidSecret)
		return nil, false
	}
	svc, err := h.store.ServiceBySecret(c.Request.Context(), secret)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			abortWith(c, errServiceNotFound)
		} else {
			abortInternal(c, err)
		}
		return nil, false
	}
	return svc, true
}

// resolvePublic is resolveSecret's counterpart for public keys.
func (h *Handler) resolvePublic(c *gin.Context, public string) (*model.Service, bool) {
	if !keys.ValidPublic(public) {
		abortWith(c, errInvalidService)
		return nil, false
	}
	svc, err := h.store.ServiceByPublic(c.Request.Context(), public)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			abortWith(c, errServiceNotFound)
		} else {
			abortInternal(c, err)
		}
		return nil, false
	}
	return svc, true
}

// secretParam accepts the secret from the query string or the form body.
func secretParam(c *gin.Context) string {
	if secret := c.Query("secret"); secret != "" {
		return secret
	}
	return c.PostForm("secret")
}
