package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableService interface {
	Roster() *models.Roster
	Generate(ctx context.Context) (*dto.GenerateTimetableResponse, error)
	Sessions(ctx context.Context, query dto.SessionQuery) ([]models.Session, error)
	Conflicts(ctx context.Context) []dto.ConflictView
	ValidateMove(ctx context.Context, req dto.MoveSessionRequest) (models.ValidationResult, error)
	Relocate(ctx context.Context, req dto.MoveSessionRequest) (*dto.MoveSessionResponse, error)
	Reset(ctx context.Context) error
	Publish(ctx context.Context, req dto.PublishTimetableRequest) (*dto.PublishTimetableResponse, error)
	ListPublished(ctx context.Context) ([]models.PublishedTimetable, error)
	PublishedSessions(ctx context.Context, id string) ([]models.PublishedSession, error)
	Export(ctx context.Context, query dto.ExportTimetableQuery) (*service.ExportFile, error)
}

// TimetableHandler exposes the live timetable endpoints.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Roster godoc
// @Summary Reference data the timetable is built from
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roster [get]
func (h *TimetableHandler) Roster(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Roster())
}

// Generate godoc
// @Summary Discard the live timetable and place a new one
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	result, err := h.service.Generate(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{
		"sessionsRequested": result.Stats.SessionsRequested,
		"sessionsPlaced":    result.Stats.SessionsPlaced,
		"conflicts":         result.Stats.ConflictCount,
	})
}

// Sessions godoc
// @Summary List live sessions
// @Tags Timetable
// @Produce json
// @Param groupId query string false "Group ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/sessions [get]
func (h *TimetableHandler) Sessions(c *gin.Context) {
	var query dto.SessionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	sessions, err := h.service.Sessions(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"total": len(sessions)})
}

// Conflicts godoc
// @Summary Unmet demand from the last generation run
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/conflicts [get]
func (h *TimetableHandler) Conflicts(c *gin.Context) {
	conflicts := h.service.Conflicts(c.Request.Context())
	response.JSON(c, http.StatusOK, conflicts, map[string]interface{}{"total": len(conflicts)})
}

// Reset godoc
// @Summary Clear every session
// @Tags Timetable
// @Success 204
// @Router /timetable/reset [post]
func (h *TimetableHandler) Reset(c *gin.Context) {
	if err := h.service.Reset(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ValidateMove godoc
// @Summary Check whether a session can move without changing anything
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.MoveSessionRequest true "Target slot"
// @Success 200 {object} response.Envelope
// @Router /timetable/sessions/{id}/validate [post]
func (h *TimetableHandler) ValidateMove(c *gin.Context) {
	req, ok := bindMove(c)
	if !ok {
		return
	}
	result, err := h.service.ValidateMove(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Relocate godoc
// @Summary Move a session to another slot
// @Description A refused move answers 200 with ok=false and the reason.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.MoveSessionRequest true "Target slot"
// @Success 200 {object} response.Envelope
// @Router /timetable/sessions/{id}/relocate [post]
func (h *TimetableHandler) Relocate(c *gin.Context) {
	req, ok := bindMove(c)
	if !ok {
		return
	}
	result, err := h.service.Relocate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Export godoc
// @Summary Download the timetable as a day by hour grid
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param groupId query string false "Group ID"
// @Success 200 {file} file
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	var query dto.ExportTimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Publish godoc
// @Summary Freeze the live timetable as a new version
// @Tags Publishing
// @Accept json
// @Produce json
// @Param payload body dto.PublishTimetableRequest false "Publish options"
// @Success 201 {object} response.Envelope
// @Router /timetable/publish [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	var req dto.PublishTimetableRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid publish payload"))
			return
		}
	}
	result, err := h.service.Publish(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListPublished godoc
// @Summary List published timetable versions
// @Tags Publishing
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/published [get]
func (h *TimetableHandler) ListPublished(c *gin.Context) {
	timetables, err := h.service.ListPublished(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetables)
}

// PublishedSessions godoc
// @Summary Sessions stored with a published version
// @Tags Publishing
// @Produce json
// @Param id path string true "Published timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/published/{id}/sessions [get]
func (h *TimetableHandler) PublishedSessions(c *gin.Context) {
	sessions, err := h.service.PublishedSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions)
}

func bindMove(c *gin.Context) (dto.MoveSessionRequest, bool) {
	var req dto.MoveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid move payload"))
		return req, false
	}
	req.SessionID = c.Param("id")
	return req, true
}
