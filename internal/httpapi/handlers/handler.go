package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gopherchat/gopherchat/internal/chat"
	"github.com/gopherchat/gopherchat/internal/common"
	"github.com/gopherchat/gopherchat/internal/config"
	"github.com/gopherchat/gopherchat/internal/httpapi/middleware"
	"github.com/gopherchat/gopherchat/internal/store/redisstore"
)

type Handler struct {
	DB      *gorm.DB
	Cfg     config.Config
	Redis   *redisstore.Store
	ChatSvc *chat.Service
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, blobs chat.BlobStore, events chat.EventPublisher) *Handler {
	repo := chat.NewRepo(db)
	limits := chat.AttachmentLimits{
		MaxFiles:     cfg.AttachmentMaxFiles,
		MaxFileBytes: cfg.AttachmentMaxFileBytes,
		AllowedMime:  cfg.AttachmentAllowedMime,
	}
	svc := chat.NewService(repo, limits, cfg.AttachmentDisk, blobs, events)
	return &Handler{DB: db, Cfg: cfg, Redis: rds, ChatSvc: svc}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

// failChatError translates the core error taxonomy to HTTP. Forbidden and
// validation failures pass through typed; anything unexpected is logged and
// hidden behind a generic 500.
func failChatError(c *gin.Context, op string, uid uint64, err error) {
	var fe *chat.ForbiddenError
	if errors.As(err, &fe) {
		common.Fail(c, http.StatusForbidden, 40300, fe.Reason)
		return
	}
	var ve *chat.ValidationError
	if errors.As(err, &ve) {
		common.FailFields(c, http.StatusUnprocessableEntity, 42200, "validation failed", ve.Fields)
		return
	}
	if errors.Is(err, chat.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		common.Fail(c, http.StatusNotFound, 40400, "not found")
		return
	}
	log.Printf("[%s] uid=%d request_id=%s err=%v", op, uid, c.GetString("request_id"), err)
	common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
}
