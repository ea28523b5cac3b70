package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// CreateClass godoc
// @Summary      Create class
// @Description  Creates a class template. Admin only.
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateClassRequest  true  "Class data"
// @Success      201      {object}  Class
// @Failure      400      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /admin/classes [post]
func (h *Handler) CreateClass(c *gin.Context) {
	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cls, err := h.repo.CreateClass(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create class"})
		return
	}

	c.JSON(http.StatusCreated, cls)
}

// ListClasses godoc
// @Summary      List classes
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        all  query     bool  false  "Include inactive classes"
// @Success      200  {array}   Class
// @Failure      500  {object}  gin.H
// @Router       /classes [get]
func (h *Handler) ListClasses(c *gin.Context) {
	onlyActive := c.Query("all") != "true"

	classes, err := h.repo.ListClasses(c.Request.Context(), onlyActive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch classes"})
		return
	}

	c.JSON(http.StatusOK, classes)
}

// GetClass godoc
// @Summary      Get class
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        classID  path      int  true  "Class ID"
// @Success      200      {object}  Class
// @Failure      400      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Router       /classes/{classID} [get]
func (h *Handler) GetClass(c *gin.Context) {
	classID, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid class ID"})
		return
	}

	cls, err := h.repo.GetClassByID(c.Request.Context(), classID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
		return
	}

	c.JSON(http.StatusOK, cls)
}

// ListCategories godoc
// @Summary      List categories
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Category
// @Failure      500  {object}  gin.H
// @Router       /categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, categories)
}

// ListGroups godoc
// @Summary      List groups
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Group
// @Failure      500  {object}  gin.H
// @Router       /groups [get]
func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.repo.ListGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	c.JSON(http.StatusOK, groups)
}
