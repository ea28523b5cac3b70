package checkin

import (
	"net/http"
	"strconv"

	"wildenergy/internal/api"
	"wildenergy/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// Validate godoc
// @Summary      Validate a QR token
// @Description  Marks the registration behind the token as attended. Re-scanning an already validated token succeeds and is flagged in the response.
// @Tags         checkins
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      ValidateRequest  true  "QR token"
// @Success      200      {object}  ValidateResult
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /staff/checkins [post]
func (h *Handler) Validate(c *gin.Context) {
	staffID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.repo.Validate(c.Request.Context(), req.QRToken, staffID)
	if err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Unvalidate godoc
// @Summary      Revert a check-in
// @Description  Deletes the checkin and puts the registration back to registered. For mistaken scans.
// @Tags         checkins
// @Security     BearerAuth
// @Produce      json
// @Param        registrationID  path      int  true  "Registration ID"
// @Success      200             {object}  api.MessageResponse
// @Failure      404             {object}  api.ErrorResponse
// @Router       /staff/checkins/{registrationID} [delete]
func (h *Handler) Unvalidate(c *gin.Context) {
	registrationID, err := strconv.Atoi(c.Param("registrationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registration ID"})
		return
	}

	if err := h.repo.Unvalidate(c.Request.Context(), registrationID); err != nil {
		api.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Check-in reverted"})
}

// ListByCourse godoc
// @Summary      List check-ins for a course
// @Tags         checkins
// @Security     BearerAuth
// @Produce      json
// @Param        courseID  path      int  true  "Course instance ID"
// @Success      200       {array}   Checkin
// @Failure      500       {object}  api.ErrorResponse
// @Router       /staff/courses/{courseID}/checkins [get]
func (h *Handler) ListByCourse(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	checkins, err := h.repo.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch check-ins"})
		return
	}

	c.JSON(http.StatusOK, checkins)
}
