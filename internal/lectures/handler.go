package lectures

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ar-classroom/backend/pkg/response"
	"github.com/ar-classroom/backend/pkg/upload"
)

// Handler handles lecture lifecycle HTTP endpoints.
type Handler struct {
	svc            *Service
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewHandler creates a lectures handler. maxUploadBytes caps each uploaded part.
func NewHandler(svc *Service, maxUploadBytes int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Register mounts the lecture routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/startLecture", h.StartLecture)
	r.PATCH("/updateInfo", h.UpdateInfo)
	r.GET("/requestSummary", h.RequestSummary)
	r.GET("/requestQuestions", h.RequestQuestions)
	r.POST("/endLecture", h.EndLecture)
}

// StartLecture handles POST /startLecture?owner_id=.
func (h *Handler) StartLecture(c *gin.Context) {
	ownerID, ok := requireQuery(c, "owner_id")
	if !ok {
		return
	}
	sessionID, err := h.svc.Start(c.Request.Context(), ownerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"session_id": sessionID})
}

// UpdateInfo handles PATCH /updateInfo?owner_id=&session_id= with optional multipart
// parts "audio" and "image".
func (h *Handler) UpdateInfo(c *gin.Context) {
	ownerID, ok := requireQuery(c, "owner_id")
	if !ok {
		return
	}
	sessionID, ok := requireQuery(c, "session_id")
	if !ok {
		return
	}

	audio, err := h.formFile(c, "audio")
	if err != nil {
		h.fail(c, err)
		return
	}
	image, err := h.formFile(c, "image")
	if err != nil {
		h.fail(c, err)
		return
	}

	err = h.svc.Update(c.Request.Context(), UpdateRequest{
		OwnerID:   ownerID,
		SessionID: sessionID,
		Audio:     audio,
		Image:     image,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Status(c, "updated")
}

// RequestSummary handles GET /requestSummary?owner_id=&session_id=.
func (h *Handler) RequestSummary(c *gin.Context) {
	ownerID, ok := requireQuery(c, "owner_id")
	if !ok {
		return
	}
	sessionID, ok := requireQuery(c, "session_id")
	if !ok {
		return
	}
	summary, err := h.svc.Summary(c.Request.Context(), ownerID, sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, summary)
}

// RequestQuestions handles GET /requestQuestions?owner_id=&session_id=.
func (h *Handler) RequestQuestions(c *gin.Context) {
	ownerID, ok := requireQuery(c, "owner_id")
	if !ok {
		return
	}
	sessionID, ok := requireQuery(c, "session_id")
	if !ok {
		return
	}
	questions, err := h.svc.Questions(c.Request.Context(), ownerID, sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, questions)
}

// EndLecture handles POST /endLecture?owner_id=[&session_id=].
func (h *Handler) EndLecture(c *gin.Context) {
	ownerID, ok := requireQuery(c, "owner_id")
	if !ok {
		return
	}
	if err := h.svc.End(c.Request.Context(), ownerID, c.Query("session_id")); err != nil {
		h.fail(c, err)
		return
	}
	response.Status(c, "ended")
}

// formFile buffers the named part. A missing part, or a body that is not multipart, is nil.
func (h *Handler) formFile(c *gin.Context, name string) (*upload.File, error) {
	fh, err := c.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, invalidInput("invalid multipart body: " + err.Error())
	}
	return h.readPart(fh)
}

func (h *Handler) readPart(fh *multipart.FileHeader) (*upload.File, error) {
	f, err := upload.Read(fh, h.maxUploadBytes)
	if errors.Is(err, upload.ErrTooLarge) {
		return nil, invalidInput(err.Error())
	}
	return f, err
}

// fail maps domain errors to 4xx and everything else to 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var lerr *Error
	if errors.As(err, &lerr) {
		switch {
		case errors.Is(lerr, ErrNotFound):
			response.NotFound(c, lerr.Detail)
			return
		case errors.Is(lerr, ErrInvalidInput):
			response.BadRequest(c, lerr.Detail)
			return
		case errors.Is(lerr, ErrActiveSessionExists):
			response.Conflict(c, lerr.Detail)
			return
		}
	}
	h.logger.Error("lecture request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	response.Internal(c, err.Error())
}

func requireQuery(c *gin.Context, key string) (string, bool) {
	v := c.Query(key)
	if v == "" {
		response.BadRequest(c, key+" is required")
		return "", false
	}
	return v, true
}
