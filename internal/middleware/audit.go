package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crossmark-io/crossmark-api/internal/models"
	"github.com/crossmark-io/crossmark-api/internal/service"
	"github.com/crossmark-io/crossmark-api/pkg/middleware/requestid"
)

// Audit records one audit entry per API operation with a snapshot of the
// actor's identity at execution time. Operations that write their own entry
// inside the service (the conversion mutation does) are deduplicated by
// request_id, so stacking this middleware on them is harmless.
func Audit(auditSvc *service.AuditService, opType models.OperationType, opName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		entry := &models.AuditLogEntry{
			OperationType:  opType,
			OperationName:  &opName,
			OperationText:  opName,
			RequestID:      requestid.Value(c),
			ResponseStatus: models.AuditStatusSuccess,
			ExecutedAt:     start,
		}

		if claims, ok := CurrentUser(c); ok {
			entry.UserID = &claims.UserID
			role := string(claims.Role)
			entry.UserRole = &role
			if claims.AccessLevel != "" {
				entry.UserAccessLevel = &claims.AccessLevel
			}
			if claims.AuthorityID != "" {
				entry.AuthorityID = &claims.AuthorityID
			}
			if claims.NationCode != "" {
				entry.NationCode = &claims.NationCode
			}
		}

		ip := c.ClientIP()
		entry.ClientIP = &ip
		if ua := c.GetHeader("User-Agent"); ua != "" {
			entry.UserAgent = &ua
		}
		elapsed := int(time.Since(start).Milliseconds())
		entry.ExecutionTimeMS = &elapsed

		if status := c.Writer.Status(); status >= 400 {
			entry.ResponseStatus = models.AuditStatusError
			if len(c.Errors) > 0 {
				msg := c.Errors.String()
				entry.ErrorMessage = &msg
			}
		}

		if query := c.Request.URL.Query(); len(query) > 0 {
			if raw, err := json.Marshal(query); err == nil {
				entry.VariablesJSON = raw
			}
		}

		// Read-path entries are best effort; a failed write is logged with
		// the security marker inside Record. The mutation path enforces the
		// write inside its service where failure can still abort the caller.
		_ = auditSvc.Record(c.Request.Context(), entry, false)
	}
}
