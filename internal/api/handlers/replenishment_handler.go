package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/fba-replenish/internal/domain"
	"github.com/andresuchdata/fba-replenish/internal/export"
	"github.com/andresuchdata/fba-replenish/internal/service"
	"github.com/andresuchdata/fba-replenish/internal/source"
)

// maxUploadBytes bounds a single source file.
const maxUploadBytes = 64 << 20

type ReplenishmentHandler struct {
	service *service.ReplenishmentService
}

func NewReplenishmentHandler(service *service.ReplenishmentService) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service}
}

// CreateSession opens a new workbench session
func (h *ReplenishmentHandler) CreateSession(c *gin.Context) {
	c.JSON(http.StatusCreated, h.service.CreateSession())
}

// GetSession returns source statuses and the latest summary
func (h *ReplenishmentHandler) GetSession(c *gin.Context) {
	view, err := h.service.Session(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ReplenishmentHandler) DeleteSession(c *gin.Context) {
	if err := h.service.DeleteSession(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type fetchRequest struct {
	Location string `json:"location" binding:"required"`
}

// PutSource fills a source slot, either from a multipart "file" field or from
// a JSON body naming a location (s3://, drive://, db://).
func (h *ReplenishmentHandler) PutSource(c *gin.Context) {
	kind, err := source.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var status source.SourceStatus
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req fetchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "location is required"})
			return
		}
		status, err = h.service.Fetch(c.Request.Context(), c.Param("id"), kind, req.Location)
	} else {
		name, data, readErr := readUpload(c)
		if readErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": readErr.Error()})
			return
		}
		status, err = h.service.Upload(c.Request.Context(), c.Param("id"), kind, name, data)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	code := http.StatusOK
	if status.Status != source.StatusValid {
		code = http.StatusUnprocessableEntity
	}
	c.JSON(code, status)
}

// GenerateReport runs the engine over the session's sources
func (h *ReplenishmentHandler) GenerateReport(c *gin.Context) {
	rs, err := h.service.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rs.Summary)
}

// GetRecords lists the latest records, filtered by ?view=shipment|recall|full
func (h *ReplenishmentHandler) GetRecords(c *gin.Context) {
	view, ok := domain.ParseView(c.DefaultQuery("view", string(domain.ViewFull)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown view"})
		return
	}

	records, err := h.service.Records(c.Param("id"), view)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"view":    view,
		"count":   len(records),
		"records": records,
	})
}

// DownloadExport streams a view as CSV
func (h *ReplenishmentHandler) DownloadExport(c *gin.Context) {
	view, ok := domain.ParseView(c.Param("view"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown view"})
		return
	}

	name, data, err := h.service.Export(c.Param("id"), view)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

type publishRequest struct {
	Prefix string `json:"prefix"`
}

// PublishExport uploads a view to object storage
func (h *ReplenishmentHandler) PublishExport(c *gin.Context) {
	view, ok := domain.ParseView(c.Param("view"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown view"})
		return
	}

	var req publishRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if req.Prefix == "" {
		req.Prefix = "exports"
	}

	key, err := h.service.Publish(c.Request.Context(), c.Param("id"), view, req.Prefix)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

// GetMetrics returns engine run counters
func (h *ReplenishmentHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Metrics())
}

func readUpload(c *gin.Context) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, errors.New("no file provided")
	}
	if fh.Size > maxUploadBytes {
		return "", nil, fmt.Errorf("file exceeds %d bytes", maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return fh.Filename, data, nil
}

// fail maps service errors onto status codes.
func (h *ReplenishmentHandler) fail(c *gin.Context, err error) {
	var notReady *source.NotReadyError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &notReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "missing": notReady.Kinds})
	case errors.Is(err, service.ErrNoReport):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, export.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoStorage):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		log.Error().Stack().Err(err).Str("path", c.FullPath()).Msg("replenishment request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
