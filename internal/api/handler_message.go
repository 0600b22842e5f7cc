package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"push-relay-backend/internal/model"
)

// PublishMessage handles POST /message: the message is persisted first
// (the authoritative step), then handed to the fanout dispatcher. Push
// channel failures never fail the publish.
func (h *Handler) PublishMessage(c *gin.Context) {
	secret := c.PostForm("secret")
	if secret == "" {
		abortWith(c, errMissingArg("secret"))
		return
	}
	svc, ok := h.resolveSecret(c, secret)
	if !ok {
		return
	}

	text := c.PostForm("message")
	if text == "" {
		abortWith(c, errMissingArg("message"))
		return
	}
	title := c.PostForm("title")
	link := c.PostForm("link")
	// level is advisory severity. An unparseable value falls back to the
	// default instead of failing the publish; the error table has no id
	// for it.
	level := 0
	if v := c.PostForm("level"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			level = parsed
		}
	}

	msg, err := h.store.AppendMessage(c.Request.Context(), svc.ID, text, title, level, link)
	if err != nil {
		abortInternal(c, err)
		return
	}

	if h.dispatcher != nil {
		h.dispatcher.Dispatch(c.Request.Context(), msg, svc)
	}

	okResponse(c)
}

// ReadMessages handles GET /message?uuid=...: unread messages across all
// of the device's subscriptions, oldest first, advancing every cursor.
func (h *Handler) ReadMessages(c *gin.Context) {
	device, ok := deviceParam(c)
	if !ok {
		return
	}

	msgs, err := h.store.CollectUnread(c.Request.Context(), device)
	if err != nil {
		abortInternal(c, err)
		return
	}

	views := make([]model.RenderedMessage, 0, len(msgs))
	for i := range msgs {
		views = append(views, model.RenderMessage(&msgs[i], &msgs[i].Service))
	}
	c.JSON(http.StatusOK, gin.H{"messages": views})
}

// MarkRead handles DELETE /message?uuid=...: moves every cursor of the
// device to its service's latest message. Idempotent.
func (h *Handler) MarkRead(c *gin.Context) {
	device, ok := deviceParam(c)
	if !ok {
		return
	}

	if err := h.store.MarkRead(c.Request.Context(), device); err != nil {
		abortInternal(c, err)
		return
	}

	okResponse(c)
}
