package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/waggle-sensor/facilities/internal/modules/serializer"
	"github.com/waggle-sensor/facilities/internal/modules/service"
)

type AllocationRequestHandler struct {
	svc   service.AllocationRequestService
	forms service.AllocationFormService
}

func NewAllocationRequestHandler(s service.AllocationRequestService, forms service.AllocationFormService) *AllocationRequestHandler {
	return &AllocationRequestHandler{svc: s, forms: forms}
}

// GetSchema godoc
//
//	@Summary		Allocation request form schema
//	@Description	JSON-Schema of the allocation request payload. Science fields are listed by name.
//	@Tags			allocation-request
//	@Produce		json
//	@Success		200	{object}	serializer.Response{data=object}
//	@Router			/allocation-requests/schema [get]
func (h *AllocationRequestHandler) GetSchema(c *gin.Context) {
	schema, err := h.forms.Schema(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: schema})
}

// GetFormData godoc
//
//	@Summary		Allocation request form data
//	@Description	Choice lists used to render the allocation request form
//	@Tags			allocation-request
//	@Produce		json
//	@Success		200	{object}	serializer.Response{data=service.FormData}
//	@Router			/allocation-requests/form-data [get]
func (h *AllocationRequestHandler) GetFormData(c *gin.Context) {
	data, err := h.forms.FormData(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: data})
}

// SubmitAllocationRequest godoc
//
//	@Summary		Submit allocation request
//	@Description	Request a new project, renew one or join one. New project requests require the PI, project and proposal fields.
//	@Tags			allocation-request
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	service.SubmitAllocationRequestInput	true	"Allocation request"
//	@Success		201	{object}	serializer.Response{data=serializer.AllocationRequest}
//	@Failure		400	{object}	serializer.Response{data=serializer.ValidationData}
//	@Failure		409	{object}	serializer.Response
//	@Router			/allocation-requests [post]
func (h *AllocationRequestHandler) SubmitAllocationRequest(c *gin.Context) {
	req := service.SubmitAllocationRequestInput{}
	if !bind(c, &req) {
		return
	}

	ar, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: serializer.NewAllocationRequest(ar)})
}

// GetAllocationRequest godoc
//
//	@Summary	Get allocation request
//	@Tags		allocation-request
//	@Produce	json
//	@Param		username	path	string	true	"Username the request was filed for"
//	@Success	200	{object}	serializer.Response{data=serializer.AllocationRequest}
//	@Router		/allocation-requests/{username} [get]
func (h *AllocationRequestHandler) GetAllocationRequest(c *gin.Context) {
	ar, err := h.svc.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewAllocationRequest(ar)})
}

type ListAllocationRequestsReq struct {
	Search      string `form:"search" json:"search"`
	IsApproved  *bool  `form:"is_approved" json:"is_approved"`
	RequestType string `form:"project_request_type" json:"project_request_type" example:"new"`
	Limit       *int   `form:"limit" json:"limit" binding:"omitempty,min=0,max=200" example:"20"`
	Cursor      string `form:"cursor" json:"cursor"`
}

type ListAllocationRequestsResp struct {
	Items      []serializer.AllocationRequest `json:"items"`
	NextCursor string                         `json:"next_cursor,omitempty"`
	HasMore    bool                           `json:"has_more"`
}

// ListAllocationRequests godoc
//
//	@Summary		List allocation requests
//	@Description	Newest first. If limit is not provided or 0, all requests will be returned.
//	@Tags			allocation-request
//	@Produce		json
//	@Param			search					query	string	false	"Username substring"
//	@Param			is_approved				query	boolean	false	"Filter by approval"
//	@Param			project_request_type	query	string	false	"new, renew or add"
//	@Param			limit					query	integer	false	"Limit of requests to return. Max 200."
//	@Param			cursor					query	string	false	"Cursor for pagination"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.ListAllocationRequestsResp}
//	@Router			/allocation-requests [get]
func (h *AllocationRequestHandler) ListAllocationRequests(c *gin.Context) {
	req := ListAllocationRequestsReq{}
	if !bindQuery(c, &req) {
		return
	}

	out, err := h.svc.List(c.Request.Context(), service.ListAllocationRequestsInput{
		Search:      req.Search,
		IsApproved:  req.IsApproved,
		RequestType: req.RequestType,
		Limit:       limitOf(req.Limit),
		Cursor:      req.Cursor,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: ListAllocationRequestsResp{
		Items:      serializer.NewAllocationRequests(out.Items),
		NextCursor: out.NextCursor,
		HasMore:    out.HasMore,
	}})
}

// ApproveAllocationRequest godoc
//
//	@Summary	Approve allocation request
//	@Tags		allocation-request
//	@Produce	json
//	@Param		username	path	string	true	"Username the request was filed for"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=serializer.AllocationRequest}
//	@Router		/allocation-requests/{username}/approve [post]
func (h *AllocationRequestHandler) ApproveAllocationRequest(c *gin.Context) {
	ar, err := h.svc.Approve(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewAllocationRequest(ar)})
}

// DeleteAllocationRequest godoc
//
//	@Summary	Delete allocation request
//	@Tags		allocation-request
//	@Produce	json
//	@Param		username	path	string	true	"Username the request was filed for"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{}
//	@Router		/allocation-requests/{username} [delete]
func (h *AllocationRequestHandler) DeleteAllocationRequest(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("username")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}
