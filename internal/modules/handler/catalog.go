package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/waggle-sensor/facilities/internal/modules/serializer"
	"github.com/waggle-sensor/facilities/internal/modules/service"
)

// CatalogHandler serves the science field and funding source lookup lists.
type CatalogHandler struct {
	svc service.CatalogService
}

func NewCatalogHandler(s service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: s}
}

// ListScienceFields godoc
//
//	@Summary	List science fields
//	@Tags		catalog
//	@Produce	json
//	@Success	200	{object}	serializer.Response{data=[]model.ScienceField}
//	@Router		/science-fields [get]
func (h *CatalogHandler) ListScienceFields(c *gin.Context) {
	fields, err := h.svc.ListScienceFields(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: fields})
}

type CreateScienceFieldReq struct {
	Name string `json:"name" binding:"required,max=50" example:"Ecology"`
}

// CreateScienceField godoc
//
//	@Summary	Create science field
//	@Tags		catalog
//	@Accept		json
//	@Produce	json
//	@Param		payload	body	handler.CreateScienceFieldReq	true	"CreateScienceField payload"
//	@Security	BearerAuth
//	@Success	201	{object}	serializer.Response{data=model.ScienceField}
//	@Failure	409	{object}	serializer.Response
//	@Router		/science-fields [post]
func (h *CatalogHandler) CreateScienceField(c *gin.Context) {
	req := CreateScienceFieldReq{}
	if !bind(c, &req) {
		return
	}

	f, err := h.svc.CreateScienceField(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: f})
}

// DeleteScienceField godoc
//
//	@Summary	Delete science field
//	@Tags		catalog
//	@Produce	json
//	@Param		id	path	integer	true	"Science field ID"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{}
//	@Router		/science-fields/{id} [delete]
func (h *CatalogHandler) DeleteScienceField(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteScienceField(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}

type ListFundingSourcesReq struct {
	Search string `form:"search" json:"search" example:"NSF"`
}

// ListFundingSources godoc
//
//	@Summary	List funding sources
//	@Tags		catalog
//	@Produce	json
//	@Param		search	query	string	false	"Match against source or grant number"
//	@Success	200		{object}	serializer.Response{data=[]model.FundingSource}
//	@Router		/funding-sources [get]
func (h *CatalogHandler) ListFundingSources(c *gin.Context) {
	req := ListFundingSourcesReq{}
	if !bindQuery(c, &req) {
		return
	}

	sources, err := h.svc.ListFundingSources(c.Request.Context(), req.Search)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: sources})
}

// CreateFundingSource godoc
//
//	@Summary		Create funding source
//	@Description	Add a funding source so it can be picked on the allocation request form
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	service.CreateFundingSourceInput	true	"CreateFundingSource payload"
//	@Success		201	{object}	serializer.Response{data=model.FundingSource}
//	@Router			/funding-sources [post]
func (h *CatalogHandler) CreateFundingSource(c *gin.Context) {
	req := service.CreateFundingSourceInput{}
	if !bind(c, &req) {
		return
	}

	f, err := h.svc.CreateFundingSource(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: f})
}

// DeleteFundingSource godoc
//
//	@Summary	Delete funding source
//	@Tags		catalog
//	@Produce	json
//	@Param		id	path	integer	true	"Funding source ID"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{}
//	@Router		/funding-sources/{id} [delete]
func (h *CatalogHandler) DeleteFundingSource(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteFundingSource(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}
