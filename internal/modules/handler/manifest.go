package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/waggle-sensor/facilities/internal/modules/serializer"
	"github.com/waggle-sensor/facilities/internal/modules/service"
)

// ManifestHandler serves the hardware inventory and node manifests.
type ManifestHandler struct {
	svc service.ManifestService
}

func NewManifestHandler(s service.ManifestService) *ManifestHandler {
	return &ManifestHandler{svc: s}
}

// ListComputeHardware godoc
//
//	@Summary	List compute hardware
//	@Tags		manifest
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=[]model.ComputeHardware}
//	@Router		/hardware/compute [get]
func (h *ManifestHandler) ListComputeHardware(c *gin.Context) {
	out, err := h.svc.ListComputeHardware(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// CreateComputeHardware godoc
//
//	@Summary	Create compute hardware
//	@Tags		manifest
//	@Accept		json
//	@Produce	json
//	@Param		payload	body	service.ComputeHardwareInput	true	"Compute hardware"
//	@Security	BearerAuth
//	@Success	201	{object}	serializer.Response{data=model.ComputeHardware}
//	@Router		/hardware/compute [post]
func (h *ManifestHandler) CreateComputeHardware(c *gin.Context) {
	req := service.ComputeHardwareInput{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.CreateComputeHardware(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: out})
}

// ListResourceHardware godoc
//
//	@Summary	List resource hardware
//	@Tags		manifest
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=[]model.ResourceHardware}
//	@Router		/hardware/resource [get]
func (h *ManifestHandler) ListResourceHardware(c *gin.Context) {
	out, err := h.svc.ListResourceHardware(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// CreateResourceHardware godoc
//
//	@Summary	Create resource hardware
//	@Tags		manifest
//	@Accept		json
//	@Produce	json
//	@Param		payload	body	service.HardwareInput	true	"Resource hardware"
//	@Security	BearerAuth
//	@Success	201	{object}	serializer.Response{data=model.ResourceHardware}
//	@Router		/hardware/resource [post]
func (h *ManifestHandler) CreateResourceHardware(c *gin.Context) {
	req := service.HardwareInput{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.CreateResourceHardware(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: out})
}

// ListSensorHardware godoc
//
//	@Summary	List sensor hardware
//	@Tags		manifest
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=[]model.SensorHardware}
//	@Router		/hardware/sensor [get]
func (h *ManifestHandler) ListSensorHardware(c *gin.Context) {
	out, err := h.svc.ListSensorHardware(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// CreateSensorHardware godoc
//
//	@Summary	Create sensor hardware
//	@Tags		manifest
//	@Accept		json
//	@Produce	json
//	@Param		payload	body	service.HardwareInput	true	"Sensor hardware"
//	@Security	BearerAuth
//	@Success	201	{object}	serializer.Response{data=model.SensorHardware}
//	@Router		/hardware/sensor [post]
func (h *ManifestHandler) CreateSensorHardware(c *gin.Context) {
	req := service.HardwareInput{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.CreateSensorHardware(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: out})
}

type NamesReq struct {
	Names []string `json:"names" binding:"required,min=1,dive,max=30" example:"gpu"`
}

// CreateCapabilities godoc
//
//	@Summary		Create capabilities
//	@Description	Get or create each named capability
//	@Tags			manifest
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.NamesReq	true	"Capability names"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Capability}
//	@Router			/capabilities [post]
func (h *ManifestHandler) CreateCapabilities(c *gin.Context) {
	req := NamesReq{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.CreateCapabilities(c.Request.Context(), req.Names)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// CreateTags godoc
//
//	@Summary		Create tags
//	@Description	Get or create each named tag
//	@Tags			manifest
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.NamesReq	true	"Tag names"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Tag}
//	@Router			/tags [post]
func (h *ManifestHandler) CreateTags(c *gin.Context) {
	req := NamesReq{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.CreateTags(c.Request.Context(), req.Names)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// CreateLabels godoc
//
//	@Summary		Create labels
//	@Description	Get or create each named sensor label
//	@Tags			manifest
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.NamesReq	true	"Label names"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Label}
//	@Router			/labels [post]
func (h *ManifestHandler) CreateLabels(c *gin.Context) {
	req := NamesReq{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.CreateLabels(c.Request.Context(), req.Names)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// ListManifests godoc
//
//	@Summary	List node manifests
//	@Tags		manifest
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=[]model.NodeData}
//	@Router		/manifests [get]
func (h *ManifestHandler) ListManifests(c *gin.Context) {
	out, err := h.svc.ListManifests(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// CreateNodeData godoc
//
//	@Summary	Create node manifest
//	@Tags		manifest
//	@Accept		json
//	@Produce	json
//	@Param		payload	body	service.NodeDataInput	true	"Node data"
//	@Security	BearerAuth
//	@Success	201	{object}	serializer.Response{data=model.NodeData}
//	@Failure	409	{object}	serializer.Response
//	@Router		/manifests [post]
func (h *ManifestHandler) CreateNodeData(c *gin.Context) {
	req := service.NodeDataInput{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.CreateNodeData(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: out})
}

// GetManifest godoc
//
//	@Summary		Get node manifest
//	@Description	The node with its tags, computes, compute sensors, node sensors and resources
//	@Tags			manifest
//	@Produce		json
//	@Param			vsn	path	string	true	"Node VSN"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.NodeData}
//	@Router			/manifests/{vsn} [get]
func (h *ManifestHandler) GetManifest(c *gin.Context) {
	out, err := h.svc.GetManifest(c.Request.Context(), c.Param("vsn"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// DeleteNodeData godoc
//
//	@Summary		Delete node manifest
//	@Description	Delete the node data and every component attached to it
//	@Tags			manifest
//	@Produce		json
//	@Param			vsn	path	string	true	"Node VSN"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/manifests/{vsn} [delete]
func (h *ManifestHandler) DeleteNodeData(c *gin.Context) {
	if err := h.svc.DeleteNodeData(c.Request.Context(), c.Param("vsn")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

type SetTagsReq struct {
	Names []string `json:"names" binding:"dive,max=30" example:"urban"`
}

// SetTags godoc
//
//	@Summary		Replace node tags
//	@Description	An empty list clears the tags
//	@Tags			manifest
//	@Accept			json
//	@Produce		json
//	@Param			vsn		path	string				true	"Node VSN"
//	@Param			payload	body	handler.SetTagsReq	true	"Tag names"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.NodeData}
//	@Router			/manifests/{vsn}/tags [put]
func (h *ManifestHandler) SetTags(c *gin.Context) {
	req := SetTagsReq{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.SetTags(c.Request.Context(), c.Param("vsn"), req.Names)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// AddCompute godoc
//
//	@Summary	Attach compute
//	@Tags		manifest
//	@Accept		json
//	@Produce	json
//	@Param		vsn		path	string					true	"Node VSN"
//	@Param		payload	body	service.ComputeInput	true	"Compute"
//	@Security	BearerAuth
//	@Success	201	{object}	serializer.Response{data=model.Compute}
//	@Router		/manifests/{vsn}/computes [post]
func (h *ManifestHandler) AddCompute(c *gin.Context) {
	req := service.ComputeInput{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.AddCompute(c.Request.Context(), c.Param("vsn"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: out})
}

// AddComputeSensor godoc
//
//	@Summary	Attach compute sensor
//	@Tags		manifest
//	@Accept		json
//	@Produce	json
//	@Param		vsn		path	string				true	"Node VSN"
//	@Param		compute	path	string				true	"Compute name"
//	@Param		payload	body	service.SensorInput	true	"Sensor"
//	@Security	BearerAuth
//	@Success	201	{object}	serializer.Response{data=model.ComputeSensor}
//	@Router		/manifests/{vsn}/computes/{compute}/sensors [post]
func (h *ManifestHandler) AddComputeSensor(c *gin.Context) {
	req := service.SensorInput{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.AddComputeSensor(c.Request.Context(), c.Param("vsn"), c.Param("compute"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: out})
}

// AddNodeSensor godoc
//
//	@Summary		Attach node sensor
//	@Description	Scope defaults to global
//	@Tags			manifest
//	@Accept			json
//	@Produce		json
//	@Param			vsn		path	string					true	"Node VSN"
//	@Param			payload	body	service.NodeSensorInput	true	"Sensor"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.NodeSensor}
//	@Router			/manifests/{vsn}/sensors [post]
func (h *ManifestHandler) AddNodeSensor(c *gin.Context) {
	req := service.NodeSensorInput{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.AddNodeSensor(c.Request.Context(), c.Param("vsn"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: out})
}

// AddResource godoc
//
//	@Summary	Attach resource
//	@Tags		manifest
//	@Accept		json
//	@Produce	json
//	@Param		vsn		path	string					true	"Node VSN"
//	@Param		payload	body	service.ResourceInput	true	"Resource"
//	@Security	BearerAuth
//	@Success	201	{object}	serializer.Response{data=model.Resource}
//	@Router		/manifests/{vsn}/resources [post]
func (h *ManifestHandler) AddResource(c *gin.Context) {
	req := service.ResourceInput{}
	if !bind(c, &req) {
		return
	}

	out, err := h.svc.AddResource(c.Request.Context(), c.Param("vsn"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: out})
}

// PublishManifest godoc
//
//	@Summary		Publish node manifest
//	@Description	Upload the assembled manifest as JSON to the object store and record the upload
//	@Tags			manifest
//	@Produce		json
//	@Param			vsn	path	string	true	"Node VSN"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.PublishOutput}
//	@Failure		503	{object}	serializer.Response
//	@Router			/manifests/{vsn}/publish [post]
func (h *ManifestHandler) PublishManifest(c *gin.Context) {
	out, err := h.svc.Publish(c.Request.Context(), c.Param("vsn"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}
