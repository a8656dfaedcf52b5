package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gopherchat/gopherchat/internal/chat"
	"github.com/gopherchat/gopherchat/internal/common"
)

// ListMessages returns one page newest-first and marks the page's
// conversation read for the caller as a side effect.
func (h *Handler) ListMessages(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10005, "invalid conversation id")
		return
	}

	perPage, _ := strconv.Atoi(c.Query("per_page"))
	msgs, next, err := h.ChatSvc.GetMessagesAndMarkRead(
		c.Request.Context(), convID, uid, perPage, c.Query("cursor"))
	if err != nil {
		failChatError(c, "ListMessages", uid, err)
		return
	}

	common.OK(c, gin.H{
		"data": msgs,
		"meta": gin.H{
			"next_cursor": next,
		},
	})
}

type sendMessageJSONReq struct {
	Body string `json:"body"`
}

// SendMessage accepts multipart/form-data (body field plus files) or a plain
// JSON body for text-only messages.
func (h *Handler) SendMessage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10005, "invalid conversation id")
		return
	}

	var body string
	var files []chat.FileUpload

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, "invalid multipart form")
			return
		}
		if vals := form.Value["body"]; len(vals) > 0 {
			body = vals[0]
		}
		headers := form.File["files[]"]
		if len(headers) == 0 {
			headers = form.File["files"]
		}
		files = uploadsFromHeaders(headers)
	} else {
		var req sendMessageJSONReq
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, "invalid request body")
			return
		}
		body = req.Body
	}

	msg, err := h.ChatSvc.SendMessage(c.Request.Context(), convID, uid, body, files)
	if err != nil {
		failChatError(c, "SendMessage", uid, err)
		return
	}
	common.Created(c, msg)
}

func uploadsFromHeaders(headers []*multipart.FileHeader) []chat.FileUpload {
	uploads := make([]chat.FileUpload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, chat.FileUpload{
			OriginalName: fh.Filename,
			MimeType:     fh.Header.Get("Content-Type"),
			SizeBytes:    fh.Size,
			Open: func() (io.ReadCloser, error) {
				f, err := fh.Open()
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		})
	}
	return uploads
}
