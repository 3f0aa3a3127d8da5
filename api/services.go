package api

import (
	"net/http"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/ecozelo/agenda/internal/service/catalog"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ServiceHandler struct {
	service catalog.CatalogUseCase
}

type createServiceRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes"`
	Image           string `json:"image"`
}

type updateServiceRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Price           *string `json:"price"`
	DurationMinutes *int    `json:"duration_minutes"`
	Image           *string `json:"image"`
	Active          *bool   `json:"active"`
}

type serviceResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes"`
	Image           string `json:"image,omitempty"`
	Active          bool   `json:"active"`
}

func newServiceResponse(s *domain.ServiceDefinition) serviceResponse {
	return serviceResponse{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		Price:           s.Price.StringFixed(2),
		DurationMinutes: s.DurationMinutes,
		Image:           s.Image,
		Active:          s.Active,
	}
}

func serviceListResponse(services []domain.ServiceDefinition) []serviceResponse {
	out := make([]serviceResponse, 0, len(services))
	for i := range services {
		out = append(out, newServiceResponse(&services[i]))
	}
	return out
}

func NewServiceHandler(service catalog.CatalogUseCase) *ServiceHandler {
	return &ServiceHandler{service: service}
}

func (h *ServiceHandler) Register(router *gin.RouterGroup) {
	router.GET("/services", h.listActive)
}

func (h *ServiceHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/services", h.listAll)
	router.POST("/services", h.create)
	router.PATCH("/services/:id", h.update)
	router.DELETE("/services/:id", h.delete)
}

func (h *ServiceHandler) listActive(c *gin.Context) {
	services, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, serviceListResponse(services))
}

func (h *ServiceHandler) listAll(c *gin.Context) {
	services, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, serviceListResponse(services))
}

func (h *ServiceHandler) create(c *gin.Context) {
	var req createServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		respondError(c, domain.NewValidationError("price", "invalid price"))
		return
	}

	svc, err := h.service.Create(c.Request.Context(), catalog.CreateServiceInput{
		Name:            req.Name,
		Description:     req.Description,
		Price:           price,
		DurationMinutes: req.DurationMinutes,
		Image:           req.Image,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newServiceResponse(svc))
}

func (h *ServiceHandler) update(c *gin.Context) {
	var req updateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upd := domain.ServiceUpdate{
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Image:           req.Image,
		Active:          req.Active,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			respondError(c, domain.NewValidationError("price", "invalid price"))
			return
		}
		upd.Price = &price
	}

	svc, err := h.service.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newServiceResponse(svc))
}

func (h *ServiceHandler) delete(c *gin.Context) {
	deactivated, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if deactivated {
		c.JSON(http.StatusOK, gin.H{
			"deactivated": true,
			"warning":     "service has appointments and was deactivated instead of deleted",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
