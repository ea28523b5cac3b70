package registration

import (
	"net/http"
	"strconv"
	"time"

	"wildenergy/internal/api"
	"wildenergy/internal/auth"
	"wildenergy/internal/catalog"
	"wildenergy/internal/course"
	"wildenergy/internal/member"
	"wildenergy/internal/notify"
	"wildenergy/internal/subscription"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	service *Service
}

func NewHandler(db *sqlx.DB, refundCutoff time.Duration, notifier *notify.Service) *Handler {
	repo := NewRepository(db)
	var n Notifier
	if notifier != nil {
		n = notifier
	}
	return &Handler{
		service: NewService(
			repo,
			NewLedger(db),
			course.NewRepository(db),
			subscription.NewRepository(db),
			catalog.NewRepository(db),
			member.NewRepository(db),
			n,
			refundCutoff,
		),
	}
}

// Register godoc
// @Summary      Register for a course
// @Description  Books the authenticated member onto a course instance. Returns conflicts instead of a registration when overlapping bookings exist and force is not set.
// @Tags         registrations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        courseID  path      int              true  "Course instance ID"
// @Param        request   body      RegisterRequest  true  "Registration options"
// @Success      201       {object}  RegisterResponse
// @Failure      400       {object}  api.ErrorResponse
// @Failure      404       {object}  api.ErrorResponse
// @Failure      409       {object}  api.ErrorResponse
// @Router       /courses/{courseID}/register [post]
func (h *Handler) Register(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	courseID, err := strconv.Atoi(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.Register(c.Request.Context(), memberID, courseID, req)
	if err != nil {
		api.Error(c, err)
		return
	}
	if resp.Registration == nil {
		c.JSON(http.StatusConflict, resp)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Cancel godoc
// @Summary      Cancel a registration
// @Description  Cancels a registered booking. Members can cancel their own bookings before the course starts; admins can cancel any time and force the session refund.
// @Tags         registrations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        registrationID  path      int            true   "Registration ID"
// @Param        request         body      CancelRequest  false  "Cancellation options"
// @Success      200             {object}  ReleaseResult
// @Failure      404             {object}  api.ErrorResponse
// @Failure      409             {object}  api.ErrorResponse
// @Router       /registrations/{registrationID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	registrationID, err := strconv.Atoi(c.Param("registrationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registration ID"})
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.Cancel(c.Request.Context(), memberID, registrationID, req, auth.IsAdmin(c))
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// ListMine godoc
// @Summary      List my registrations
// @Tags         registrations
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   RegistrationWithCourse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /registrations [get]
func (h *Handler) ListMine(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	regs, err := h.service.ListMine(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch registrations"})
		return
	}

	c.JSON(http.StatusOK, regs)
}

// Conflicts godoc
// @Summary      Preview registration conflicts
// @Description  Returns the overlapping bookings a registration on this course would report, without registering.
// @Tags         registrations
// @Security     BearerAuth
// @Produce      json
// @Param        courseID  path      int  true  "Course instance ID"
// @Success      200       {array}   Overlap
// @Failure      404       {object}  api.ErrorResponse
// @Router       /courses/{courseID}/conflicts [get]
func (h *Handler) Conflicts(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	courseID, err := strconv.Atoi(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	conflicts, err := h.service.FindConflicts(c.Request.Context(), memberID, courseID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, conflicts)
}

// MarkAbsent godoc
// @Summary      Mark a registration absent
// @Description  Staff correction for no-shows. The registration must still be in registered status; the consumed session is not refunded.
// @Tags         registrations
// @Security     BearerAuth
// @Produce      json
// @Param        registrationID  path      int  true  "Registration ID"
// @Success      200             {object}  api.MessageResponse
// @Failure      409             {object}  api.ErrorResponse
// @Router       /staff/registrations/{registrationID}/absent [post]
func (h *Handler) MarkAbsent(c *gin.Context) {
	registrationID, err := strconv.Atoi(c.Param("registrationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registration ID"})
		return
	}

	if err := h.service.MarkAbsent(c.Request.Context(), registrationID); err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Registration marked absent"})
}

// BulkRegister godoc
// @Summary      Bulk register members
// @Description  Registers a batch of members on a course on behalf of an admin. Skips overlap checks and may exceed capacity.
// @Tags         registrations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        courseID  path      int                  true  "Course instance ID"
// @Param        request   body      BulkRegisterRequest  true  "Member IDs"
// @Success      200       {object}  BulkRegisterResult
// @Failure      400       {object}  api.ErrorResponse
// @Failure      409       {object}  api.ErrorResponse
// @Router       /admin/courses/{courseID}/registrations [post]
func (h *Handler) BulkRegister(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	var req BulkRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.BulkRegister(c.Request.Context(), courseID, req)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
