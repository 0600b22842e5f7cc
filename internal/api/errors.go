package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// apiError is the client-visible error envelope. The numeric ids are part
// of the public contract and must never be renumbered.
type apiError struct {
	ID      int
	Message string
	Status  int
}

var (
	errInvalidClient         = apiError{1, "Invalid client uuid", http.StatusBadRequest}
	errInvalidService        = apiError{2, "Invalid service public key", http.StatusBadRequest}
	errInvalidSecret         = apiError{3, "Invalid service secret key", http.StatusBadRequest}
	errDuplicateSubscription = apiError{4, "Already subscribed to that service", http.StatusConflict}
	errRateLimited           = apiError{5, "Whoa there, slow down!", http.StatusTooManyRequests}
	errServiceNotFound       = apiError{6, "Service not found", http.StatusNotFound}
	errNotSubscribed         = apiError{11, "Not subscribed to that service", http.StatusConflict}
	errRegistrationNotFound  = apiError{12, "No such registration for that device", http.StatusNotFound}
)

func errMissingArg(name string) apiError {
	return apiError{7, fmt.Sprintf("Missing argument %s", name), http.StatusBadRequest}
}

func abortWith(c *gin.Context, e apiError) {
	c.AbortWithStatusJSON(e.Status, gin.H{
		"error": gin.H{"id": e.ID, "message": e.Message},
	})
}

// abortInternal hides persistence failures behind a generic body; the
// details only go to the server log.
func abortInternal(c *gin.Context, err error) {
	log.Printf("Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{"id": http.StatusInternalServerError, "message": "Internal server error"},
	})
}

func okResponse(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
