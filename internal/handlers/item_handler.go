package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anonto42/swaply/backend/internal/middleware"
	"github.com/anonto42/swaply/backend/internal/models"
	"github.com/anonto42/swaply/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var errImagesDisabled = echo.NewHTTPError(http.StatusServiceUnavailable, "Image uploads are disabled")

// ItemHandler handles the item catalog
type ItemHandler struct {
	itemRepository  repositories.ItemRepository
	imageRepository repositories.ImageRepository // nil when image storage is not configured
	sessions        *middleware.SessionManager
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(itemRepo repositories.ItemRepository, imageRepo repositories.ImageRepository, sessions *middleware.SessionManager) *ItemHandler {
	return &ItemHandler{
		itemRepository:  itemRepo,
		imageRepository: imageRepo,
		sessions:        sessions,
	}
}

// RegisterItemRoutes registers catalog routes
func (h *ItemHandler) RegisterItemRoutes(g *echo.Group) {
	g.GET("/", h.Browse)
	g.GET("/dashboard", h.Browse)
	g.GET("/my-items", h.MyItems)
	g.POST("/my-items", h.CreateItem)
	g.GET("/items/:id", h.GetItem)
	g.GET("/items/:id/image", h.GetItemImage)
	g.GET("/items/:id/edit", h.EditItemForm)
	g.POST("/items/:id/edit", h.UpdateItem)
	g.GET("/items/:id/delete", h.DeleteItemConfirm)
	g.POST("/items/:id/delete", h.DeleteItem)
}

// Browse lists everyone else's items, newest first, optionally by mode
func (h *ItemHandler) Browse(c echo.Context) error {
	filter := repositories.ItemFilter{ExcludeOwnerID: currentUserID(c)}
	mode, _ := models.ParseItemMode(c.QueryParam("mode"))
	filter.Mode = mode

	items, err := h.itemRepository.ListItems(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "mode": mode})
}

// MyItems lists the caller's own items
func (h *ItemHandler) MyItems(c echo.Context) error {
	filter := repositories.ItemFilter{OwnerID: currentUserID(c)}
	mode, _ := models.ParseItemMode(c.QueryParam("mode"))
	filter.Mode = mode

	items, err := h.itemRepository.ListItems(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "mode": mode})
}

// CreateItem lists a new item owned by the caller
func (h *ItemHandler) CreateItem(c echo.Context) error {
	var req models.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	item := &models.Item{
		OwnerID:     currentUserID(c),
		Title:       req.Title,
		Description: req.Description,
		Mode:        models.ItemModeSwap,
	}
	if mode, ok := models.ParseItemMode(req.Mode); ok {
		item.Mode = mode
	}

	ref, err := h.storeUploadedImage(c)
	if err != nil {
		return err
	}
	item.ImageRef = ref

	if err := h.itemRepository.CreateItem(ctx, item); err != nil {
		h.discardImage(ctx, ref)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return respond(c, h.sessions, outcome{http.StatusCreated, middleware.FlashSuccess, "Item created"}, item)
}

// GetItem returns any item with its owner
func (h *ItemHandler) GetItem(c echo.Context) error {
	item, err := h.loadItem(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// GetItemImage streams the stored image of an item
func (h *ItemHandler) GetItemImage(c echo.Context) error {
	item, err := h.loadItem(c)
	if err != nil {
		return err
	}
	if item.ImageRef == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Item has no image")
	}
	if h.imageRepository == nil {
		return errImagesDisabled
	}

	img, err := h.imageRepository.DownloadImage(c.Request().Context(), *item.ImageRef)
	if err != nil {
		if errors.Is(err, repositories.ErrImageNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Image not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load image")
	}
	if img.Filename != "" {
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", img.Filename))
	}
	return c.Blob(http.StatusOK, img.ContentType, img.Data)
}

// EditItemForm returns the caller's item for editing
func (h *ItemHandler) EditItemForm(c echo.Context) error {
	item, err := h.loadOwnItem(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// UpdateItem replaces the editable fields of the caller's item
func (h *ItemHandler) UpdateItem(c echo.Context) error {
	item, err := h.loadOwnItem(c)
	if err != nil {
		return err
	}

	var req models.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	oldRef := item.ImageRef
	item.Title = req.Title
	item.Description = req.Description
	item.Mode, _ = models.ParseItemMode(req.Mode)

	newRef, err := h.storeUploadedImage(c)
	if err != nil {
		return err
	}
	switch {
	case newRef != nil:
		item.ImageRef = newRef
	case isChecked(c.FormValue("clear_image")):
		item.ImageRef = nil
	}

	if err := h.itemRepository.UpdateItem(ctx, item); err != nil {
		h.discardImage(ctx, newRef)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if oldRef != nil && (item.ImageRef == nil || *item.ImageRef != *oldRef) {
		h.discardImage(ctx, oldRef)
	}

	return respond(c, h.sessions, outcome{http.StatusOK, middleware.FlashSuccess, "Item updated"}, item)
}

// DeleteItemConfirm returns the caller's item for a delete confirmation
func (h *ItemHandler) DeleteItemConfirm(c echo.Context) error {
	item, err := h.loadOwnItem(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteItem removes the caller's item together with its requests and reviews
func (h *ItemHandler) DeleteItem(c echo.Context) error {
	item, err := h.loadOwnItem(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.itemRepository.DeleteItem(ctx, item.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.discardImage(ctx, item.ImageRef)

	return respond(c, h.sessions, outcome{http.StatusOK, middleware.FlashSuccess, "Item deleted"}, nil)
}

func (h *ItemHandler) loadItem(c echo.Context) (*models.Item, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	item, err := h.itemRepository.GetItemByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Item not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return item, nil
}

// loadOwnItem loads the item and ensures the caller owns it
func (h *ItemHandler) loadOwnItem(c echo.Context) (*models.Item, error) {
	item, err := h.loadItem(c)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != currentUserID(c) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "You are not authorized to modify this item")
	}
	return item, nil
}

// storeUploadedImage saves the optional multipart "image" file and returns its reference
func (h *ItemHandler) storeUploadedImage(c echo.Context) (*string, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid image upload")
	}
	if h.imageRepository == nil {
		return nil, errImagesDisabled
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Cannot open uploaded image")
	}
	defer file.Close()

	ref, err := h.imageRepository.UploadImage(c.Request().Context(), fileHeader.Filename, fileHeader.Header.Get(echo.HeaderContentType), file)
	if err != nil {
		log.Ctx(c.Request().Context()).Error().Err(err).Msg("upload item image")
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to store image")
	}
	return &ref, nil
}

// discardImage removes a stored image, logging instead of failing
func (h *ItemHandler) discardImage(ctx context.Context, ref *string) {
	if ref == nil || h.imageRepository == nil {
		return
	}
	if err := h.imageRepository.DeleteImage(ctx, *ref); err != nil && !errors.Is(err, repositories.ErrImageNotFound) {
		log.Ctx(ctx).Warn().Err(err).Str("image_ref", *ref).Msg("failed to delete item image")
	}
}

func isChecked(v string) bool {
	switch v {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}
