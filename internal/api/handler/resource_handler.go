package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/silianos/voyage-api/internal/api/metrics"
	"github.com/silianos/voyage-api/internal/core/domain"
	"github.com/silianos/voyage-api/internal/core/ports"
)

// ResourceHandler serves the CRUD routes of one content resource.
type ResourceHandler struct {
	svc ports.ResourceService
}

func NewResourceHandler(svc ports.ResourceService) *ResourceHandler {
	return &ResourceHandler{svc: svc}
}

func (h *ResourceHandler) label() string { return h.svc.Schema().Label }

// List returns every record of the resource.
//
// @Summary      List records
// @Tags         content
// @Produce      json
// @Param        resource  path  string  true  "bookings, testimonials, blog, messages, gallery, services or pricing"
// @Success      200  {array}   object
// @Router       /{resource} [get]
func (h *ResourceHandler) List(c echo.Context) error {
	docs, err := h.svc.List(c.Request().Context(), nil)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, docs)
}

// ListByCategory returns the records of one category.
//
// @Summary      List records by category
// @Tags         content
// @Produce      json
// @Param        resource  path  string  true  "blog or gallery"
// @Param        category  path  string  true  "Category"
// @Success      200  {array}   object
// @Router       /{resource}/category/{category} [get]
func (h *ResourceHandler) ListByCategory(c echo.Context) error {
	docs, err := h.svc.List(c.Request().Context(), map[string]any{"category": c.Param("category")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, docs)
}

// Categories returns the distinct categories in use.
//
// @Summary      List categories
// @Tags         content
// @Produce      json
// @Success      200  {array}   string
// @Router       /gallery/categories [get]
func (h *ResourceHandler) Categories(c echo.Context) error {
	categories, err := h.svc.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}

// Get returns one record.
//
// @Summary      Get a record
// @Tags         content
// @Produce      json
// @Param        resource  path  string  true  "Resource"
// @Param        id        path  string  true  "Record id"
// @Success      200  {object}  object
// @Failure      404  {object}  errorBody
// @Router       /{resource}/{id} [get]
func (h *ResourceHandler) Get(c echo.Context) error {
	doc, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// Create stores a new record.
//
// @Summary      Create a record
// @Tags         content
// @Accept       json
// @Produce      json
// @Param        resource  path  string  true  "Resource"
// @Success      201  {object}  createdResponse
// @Failure      400  {object}  errorBody
// @Router       /{resource} [post]
func (h *ResourceHandler) Create(c echo.Context) error {
	fields, err := bindFields(c)
	if err != nil {
		return err
	}

	doc, err := h.svc.Create(c.Request().Context(), fields)
	if err != nil {
		return err
	}
	metrics.DocumentsCreatedTotal.WithLabelValues(h.svc.Schema().Name).Inc()

	return c.JSON(http.StatusCreated, createdResponse{ID: doc.ID, Message: h.label() + " created successfully"})
}

// Update changes the provided fields of a record.
//
// @Summary      Update a record
// @Tags         content
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path  string  true  "Resource"
// @Param        id        path  string  true  "Record id"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /{resource}/{id} [put]
func (h *ResourceHandler) Update(c echo.Context) error {
	fields, err := bindFields(c)
	if err != nil {
		return err
	}

	if _, err := h.svc.Update(c.Request().Context(), c.Param("id"), fields); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: h.label() + " updated successfully"})
}

// Delete removes a record.
//
// @Summary      Delete a record
// @Tags         content
// @Produce      json
// @Security     BearerAuth
// @Param        resource  path  string  true  "Resource"
// @Param        id        path  string  true  "Record id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorBody
// @Router       /{resource}/{id} [delete]
func (h *ResourceHandler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: h.label() + " deleted successfully"})
}

// SetField returns a handler that sets field from the request body key of the
// same name, e.g. PATCH /bookings/:id/status with {"status": "confirmed"}.
func (h *ResourceHandler) SetField(field, message string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := bindFields(c)
		if err != nil {
			return err
		}
		if _, err := h.svc.SetField(c.Request().Context(), c.Param("id"), field, body[field]); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, messageResponse{Message: message})
	}
}

// SetFixed returns a handler that sets field to value, e.g. verifying a testimonial.
func (h *ResourceHandler) SetFixed(field string, value any, message string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := h.svc.SetField(c.Request().Context(), c.Param("id"), field, value); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, messageResponse{Message: message})
	}
}

func bindFields(c echo.Context) (map[string]any, error) {
	fields := make(map[string]any)
	if err := (&echo.DefaultBinder{}).BindBody(c, &fields); err != nil {
		return nil, domain.NewValidationError("invalid payload")
	}
	return fields, nil
}
