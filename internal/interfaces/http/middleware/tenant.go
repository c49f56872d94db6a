package middleware

import (
	"net/http"

	"github.com/clinic/backend/internal/infrastructure/logger"
	"github.com/clinic/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys set by Tenant
const (
	TenantIDKey = "tenant_id"
	ActorIDKey  = "actor_id"
)

// Tenant requires a valid X-Tenant-ID header and reads the optional
// X-User-ID of the acting employee. Both are stored on the gin context and
// on the request context for logging.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderTenantID)
		if raw == "" {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeMissingTenant, "X-Tenant-ID header is required")
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeMissingTenant, "X-Tenant-ID must be a UUID")
			return
		}

		actorID := uuid.Nil
		if rawActor := c.GetHeader(HeaderUserID); rawActor != "" {
			if actorID, err = uuid.Parse(rawActor); err != nil {
				abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "X-User-ID must be a UUID")
				return
			}
		}

		c.Set(TenantIDKey, tenantID)
		ctx := logger.WithTenantID(c.Request.Context(), tenantID.String())
		if actorID != uuid.Nil {
			c.Set(ActorIDKey, actorID)
			ctx = logger.WithActorID(ctx, actorID.String())
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetTenantID returns the tenant set by Tenant, or uuid.Nil
func GetTenantID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(TenantIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// GetActorID returns the acting user set by Tenant, or uuid.Nil
func GetActorID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ActorIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
