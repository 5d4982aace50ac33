package bloc

import (
	"net/http"
	"strconv"

	"bloc-editor/internal/errors"
	"bloc-editor/internal/fractional"
	"bloc-editor/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterValidators adds the "fractional" binding tag, accepted only for
// well formed position keys.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("fractional", func(fl validator.FieldLevel) bool {
			return fractional.Validate(fl.Field().String()) == nil
		})
	}
}

// Register mounts the bloc routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/pages/:pageId/blocs", h.Create)
	r.GET("/pages/:pageId/blocs", h.ListByPage)
	r.DELETE("/pages/:pageId/blocs", h.DeleteByPage)
	r.GET("/blocs/:id", h.Show)
	r.GET("/blocs/:id/checksum", h.ShowChecksum)
	r.PUT("/blocs/:id", h.Update)
	r.PUT("/blocs/:id/content", h.UpdateContent)
	r.PUT("/blocs/:id/position", h.UpdatePosition)
	r.PUT("/blocs/:id/page", h.UpdatePage)
	r.DELETE("/blocs/:id", h.Delete)
}

type CreateBlocRequest struct {
	ID        string `json:"id" binding:"omitempty,uuid"`
	Position  string `json:"position" binding:"required,fractional"`
	Content   string `json:"content" binding:"required"`
	BlocType  string `json:"bloc_type" binding:"required"`
	CreatedAt int64  `json:"created_at" binding:"min=0"`
	UpdatedAt int64  `json:"updated_at" binding:"min=0"`
}

func (h *Handler) Create(c *gin.Context) {
	var form CreateBlocRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	bloc := &Bloc{
		ID:        form.ID,
		Position:  form.Position,
		Content:   form.Content,
		PageID:    c.Param("pageId"),
		BlocType:  form.BlocType,
		CreatedAt: form.CreatedAt,
		UpdatedAt: form.UpdatedAt,
	}

	id, err := h.store.CreateBloc(c.Request.Context(), bloc)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListByPage returns the blocs of a page ordered by position. ?page and
// ?per_page select a slice of them; X-Total-Count carries the full count.
func (h *Handler) ListByPage(c *gin.Context) {
	blocs, err := h.store.GetBlocsByPageID(c.Request.Context(), c.Param("pageId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("X-Total-Count", strconv.Itoa(len(blocs)))
	if page, pageSize, ok := utils.GetPaginationParams(c); ok {
		blocs = utils.Paginate(blocs, page, pageSize)
	}
	c.JSON(http.StatusOK, blocs)
}

func (h *Handler) DeleteByPage(c *gin.Context) {
	deleted, err := h.store.DeleteBlocByPageID(c.Request.Context(), c.Param("pageId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handler) Show(c *gin.Context) {
	bloc, err := h.store.GetBlocByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, bloc)
}

func (h *Handler) ShowChecksum(c *gin.Context) {
	checksum, err := h.store.GetChecksum(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"checksum": checksum})
}

type UpdateBlocRequest struct {
	Position  string `json:"position" binding:"required,fractional"`
	Content   string `json:"content" binding:"required"`
	BlocType  string `json:"bloc_type" binding:"required"`
	UpdatedAt int64  `json:"updated_at" binding:"required"`
}

func (h *Handler) Update(c *gin.Context) {
	var input UpdateBlocRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	updated, err := h.store.UpdateBloc(c.Request.Context(), &Bloc{
		ID:        c.Param("id"),
		Position:  input.Position,
		Content:   input.Content,
		BlocType:  input.BlocType,
		UpdatedAt: input.UpdatedAt,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

type UpdateContentRequest struct {
	Content   string `json:"content" binding:"required"`
	UpdatedAt int64  `json:"updated_at" binding:"required"`
}

func (h *Handler) UpdateContent(c *gin.Context) {
	var input UpdateContentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	status, err := h.store.UpdateBlocContent(c.Request.Context(), c.Param("id"), input.Content, input.UpdatedAt)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

type UpdatePositionRequest struct {
	Position  string `json:"position" binding:"required,fractional"`
	UpdatedAt int64  `json:"updated_at" binding:"required"`
}

func (h *Handler) UpdatePosition(c *gin.Context) {
	var input UpdatePositionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	status, err := h.store.UpdateBlocPosition(c.Request.Context(), c.Param("id"), input.Position, input.UpdatedAt)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

type UpdatePageRequest struct {
	PageID string `json:"page_id" binding:"required"`
}

func (h *Handler) UpdatePage(c *gin.Context) {
	var input UpdatePageRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	updated, err := h.store.UpdateBlocPageID(c.Request.Context(), c.Param("id"), input.PageID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *Handler) Delete(c *gin.Context) {
	deleted, err := h.store.DeleteBloc(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
