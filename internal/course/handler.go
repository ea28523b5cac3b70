package course

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"wildenergy/internal/api"
	"wildenergy/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// CancelNotifier tells a cancelled course's roster. Satisfied by
// notify.Service; nil disables delivery.
type CancelNotifier interface {
	SendCourseCancelled(ctx context.Context, email, name, className string, startAt time.Time) error
}

type Handler struct {
	repo     Repository
	notifier CancelNotifier
}

func NewHandler(db *sqlx.DB, notifier *notify.Service) *Handler {
	var n CancelNotifier
	if notifier != nil {
		n = notifier
	}
	return &Handler{repo: NewRepository(db), notifier: n}
}

// ListCourses godoc
// @Summary      List upcoming courses
// @Description  Returns bookable course instances with availability.
// @Tags         courses
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   InstanceWithAvailability
// @Failure      500  {object}  gin.H
// @Router       /courses [get]
func (h *Handler) ListCourses(c *gin.Context) {
	instances, err := h.repo.ListUpcoming(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch courses"})
		return
	}

	out := make([]InstanceWithAvailability, 0, len(instances))
	for _, inst := range instances {
		available := inst.MaxParticipants - inst.CurrentParticipants
		if available < 0 {
			available = 0
		}
		out = append(out, InstanceWithAvailability{
			InstanceWithClass: inst,
			Available:         available,
			IsFull:            inst.CurrentParticipants >= inst.MaxParticipants,
		})
	}

	c.JSON(http.StatusOK, out)
}

// GetCourse godoc
// @Summary      Get course instance
// @Tags         courses
// @Security     BearerAuth
// @Produce      json
// @Param        courseID  path      int  true  "Course instance ID"
// @Success      200       {object}  InstanceWithClass
// @Failure      400       {object}  gin.H
// @Failure      404       {object}  gin.H
// @Router       /courses/{courseID} [get]
func (h *Handler) GetCourse(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	inst, err := h.repo.GetWithClassByID(c.Request.Context(), courseID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}

	c.JSON(http.StatusOK, inst)
}

// DeleteCourse godoc
// @Summary      Delete course instance
// @Description  Deletes an instance only when it has no registrations or check-ins. Admin only.
// @Tags         courses
// @Security     BearerAuth
// @Produce      json
// @Param        courseID  path      int  true  "Course instance ID"
// @Success      200       {object}  gin.H
// @Failure      400       {object}  gin.H
// @Failure      409       {object}  gin.H
// @Failure      500       {object}  gin.H
// @Router       /admin/courses/{courseID} [delete]
func (h *Handler) DeleteCourse(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	if err := h.repo.DeleteInstance(c.Request.Context(), courseID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Course instance deleted"})
}

// CancelCourse godoc
// @Summary      Cancel course instance
// @Description  Marks an instance cancelled and notifies its registered members. Registrations stay in place for per-booking refunds. Admin only.
// @Tags         courses
// @Security     BearerAuth
// @Produce      json
// @Param        courseID  path      int  true  "Course instance ID"
// @Success      200       {object}  gin.H
// @Failure      400       {object}  api.ErrorResponse
// @Failure      404       {object}  api.ErrorResponse
// @Failure      409       {object}  api.ErrorResponse
// @Router       /admin/courses/{courseID}/cancel [post]
func (h *Handler) CancelCourse(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	inst, attendees, err := h.repo.CancelInstance(c.Request.Context(), courseID)
	if err != nil {
		api.Error(c, err)
		return
	}

	if h.notifier != nil {
		for _, a := range attendees {
			h.notifier.SendCourseCancelled(c.Request.Context(), a.Email, a.Name, inst.ClassName, inst.StartAt)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Course instance cancelled",
		"notified": len(attendees),
	})
}
