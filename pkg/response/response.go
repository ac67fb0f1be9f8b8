package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The wire contract: successes carry a "message" plus payload fields, every
// failure is {"errors": ...} keyed by field or under "non_field_errors".

// NonFieldKey is the bucket for errors not attributable to a single field.
const NonFieldKey = "non_field_errors"

func Message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

// MessageWith writes a success body with a message and extra payload fields.
func MessageWith(c *gin.Context, status int, msg string, payload gin.H) {
	body := gin.H{"message": msg}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// FieldErrors writes {"errors": {field: [messages...]}}.
func FieldErrors(c *gin.Context, status int, fields map[string][]string) {
	c.JSON(status, gin.H{"errors": fields})
}

// NonFieldErrors writes {"errors": {"non_field_errors": [messages...]}}.
func NonFieldErrors(c *gin.Context, status int, msgs ...string) {
	c.JSON(status, gin.H{"errors": gin.H{NonFieldKey: msgs}})
}

// Internal writes a generic 500; internal detail never reaches the body.
func Internal(c *gin.Context) {
	NonFieldErrors(c, http.StatusInternalServerError, "internal server error")
}
