package schedule

import (
	"net/http"
	"strconv"

	"wildenergy/internal/api"
	"wildenergy/internal/catalog"
	"wildenergy/internal/course"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	service Service
	courses course.Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	courses := course.NewRepository(db)
	return &Handler{
		service: NewService(NewRepository(db), courses, catalog.NewRepository(db)),
		courses: courses,
	}
}

// CreateSchedule godoc
// @Summary      Create schedule
// @Description  Creates a recurrence rule and expands it into course instances. Admin only.
// @Tags         schedules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      UpsertScheduleRequest  true  "Schedule definition"
// @Success      201      {object}  gin.H
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/schedules [post]
func (h *Handler) CreateSchedule(c *gin.Context) {
	var req UpsertScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sch, instances, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"schedule":  sch,
		"instances": instances,
	})
}

// UpdateSchedule godoc
// @Summary      Update schedule
// @Description  Edits a schedule and regenerates its instances. Rejected when any instance has registrations or check-ins. Admin only.
// @Tags         schedules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        scheduleID  path      int                    true  "Schedule ID"
// @Param        request     body      UpsertScheduleRequest  true  "Schedule definition"
// @Success      200         {object}  gin.H
// @Failure      400         {object}  api.ErrorResponse
// @Failure      404         {object}  api.ErrorResponse
// @Failure      409         {object}  api.ErrorResponse
// @Router       /admin/schedules/{scheduleID} [put]
func (h *Handler) UpdateSchedule(c *gin.Context) {
	scheduleID, err := strconv.Atoi(c.Param("scheduleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule ID"})
		return
	}

	var req UpsertScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sch, instances, err := h.service.Update(c.Request.Context(), scheduleID, req)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schedule":  sch,
		"instances": instances,
	})
}

// RegenerateSchedule godoc
// @Summary      Regenerate schedule instances
// @Description  Deletes and re-expands the schedule's instances. Rejected when registrations exist. Admin only.
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Param        scheduleID  path      int  true  "Schedule ID"
// @Success      200         {object}  gin.H
// @Failure      400         {object}  api.ErrorResponse
// @Failure      404         {object}  api.ErrorResponse
// @Failure      409         {object}  api.ErrorResponse
// @Router       /admin/schedules/{scheduleID}/regenerate [post]
func (h *Handler) RegenerateSchedule(c *gin.Context) {
	scheduleID, err := strconv.Atoi(c.Param("scheduleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule ID"})
		return
	}

	instances, err := h.service.Regenerate(c.Request.Context(), scheduleID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"instances": instances})
}

// SetScheduleActive godoc
// @Summary      Activate or deactivate schedule
// @Description  Deactivation marks all instances inactive without deleting them. Admin only.
// @Tags         schedules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        scheduleID  path      int               true  "Schedule ID"
// @Param        request     body      SetActiveRequest  true  "Active flag"
// @Success      200         {object}  api.MessageResponse
// @Failure      400         {object}  api.ErrorResponse
// @Failure      404         {object}  api.ErrorResponse
// @Router       /admin/schedules/{scheduleID}/active [patch]
func (h *Handler) SetScheduleActive(c *gin.Context) {
	scheduleID, err := strconv.Atoi(c.Param("scheduleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule ID"})
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetActive(c.Request.Context(), scheduleID, *req.Active); err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Schedule updated"})
}

// ListSchedules godoc
// @Summary      List schedules
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Schedule
// @Failure      500  {object}  api.ErrorResponse
// @Router       /admin/schedules [get]
func (h *Handler) ListSchedules(c *gin.Context) {
	schedules, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch schedules"})
		return
	}

	c.JSON(http.StatusOK, schedules)
}

// ListScheduleInstances godoc
// @Summary      List a schedule's course instances
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Param        scheduleID  path      int  true  "Schedule ID"
// @Success      200         {array}   course.Instance
// @Failure      400         {object}  api.ErrorResponse
// @Failure      500         {object}  api.ErrorResponse
// @Router       /admin/schedules/{scheduleID}/courses [get]
func (h *Handler) ListScheduleInstances(c *gin.Context) {
	scheduleID, err := strconv.Atoi(c.Param("scheduleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule ID"})
		return
	}

	instances, err := h.courses.ListBySchedule(c.Request.Context(), scheduleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch instances"})
		return
	}

	c.JSON(http.StatusOK, instances)
}
