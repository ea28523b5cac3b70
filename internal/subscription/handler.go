package subscription

import (
	"net/http"

	"wildenergy/internal/auth"
	"wildenergy/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// ListMySubscriptions godoc
// @Summary      List my active subscriptions
// @Description  Returns the member's active subscriptions with session allocations.
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   SubscriptionWithAllocations
// @Failure      401  {object}  gin.H
// @Failure      500  {object}  gin.H
// @Router       /subscriptions [get]
func (h *Handler) ListMySubscriptions(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	subs, err := h.repo.ListActiveByMember(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscriptions"})
		return
	}

	c.JSON(http.StatusOK, subs)
}

// CreateSubscription godoc
// @Summary      Create subscription from plan
// @Description  Instantiates a subscription and its session allocations from a plan. Admin only.
// @Tags         subscriptions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateSubscriptionRequest  true  "Member and plan"
// @Success      201      {object}  SubscriptionWithAllocations
// @Failure      400      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /admin/subscriptions [post]
func (h *Handler) CreateSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.repo.CreateFromPlan(c.Request.Context(), req.MemberID, req.PlanID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subscription"})
		return
	}

	metrics.RecordSubscriptionCreated()

	c.JSON(http.StatusCreated, sub)
}
