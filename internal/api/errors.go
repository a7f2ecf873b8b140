// errors.go maps service errors onto HTTP responses. Message text is rendered
// through the localized catalog; the error kind alone decides the status code.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/audittrail/audittrail/internal/apperrors"
	"github.com/audittrail/audittrail/internal/middleware"
)

// localeFromRequest picks the response language from the Accept-Language
// header, falling back to the configured default. Only the primary subtag of
// the first listed language is considered.
func localeFromRequest(c *gin.Context, defaultLocale string) string {
	header := c.GetHeader("Accept-Language")
	if header == "" {
		return defaultLocale
	}

	first := header
	if i := strings.IndexAny(first, ",;"); i >= 0 {
		first = first[:i]
	}
	first = strings.TrimSpace(first)
	if i := strings.Index(first, "-"); i >= 0 {
		first = first[:i]
	}
	if first == "" {
		return defaultLocale
	}
	return strings.ToLower(first)
}

// writeError renders err as a JSON error response. Validation failures list
// every unresolved reference; store failures are logged with the request ID
// and reported generically.
func writeError(c *gin.Context, err error, locale string) {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   apperrors.Localize(err, locale),
			"details": ve.Unresolved,
		})
		return
	}

	if apperrors.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": apperrors.Localize(err, locale)})
		return
	}

	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.Error("request failed",
		"error", err,
		"path", c.FullPath(),
		"request_id", requestID,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": apperrors.Localize(err, locale)})
}
