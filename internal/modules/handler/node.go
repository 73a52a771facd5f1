package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/serializer"
	"github.com/waggle-sensor/facilities/internal/modules/service"
)

type NodeHandler struct {
	svc service.NodeService
}

func NewNodeHandler(s service.NodeService) *NodeHandler {
	return &NodeHandler{svc: s}
}

type ListNodesReq struct {
	Search      string `form:"search" json:"search" example:"W0"`
	FilesPublic *bool  `form:"files_public" json:"files_public"`
	Limit       *int   `form:"limit" json:"limit" binding:"omitempty,min=0,max=200" example:"20"`
	Cursor      string `form:"cursor" json:"cursor"`
}

type ListNodesResp struct {
	Items      []serializer.Node `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
}

// ListNodes godoc
//
//	@Summary		List nodes
//	@Description	List nodes ordered by VSN. If limit is not provided or 0, all nodes will be returned.
//	@Tags			node
//	@Produce		json
//	@Param			search			query	string	false	"VSN substring"
//	@Param			files_public	query	boolean	false	"Filter by public files flag"
//	@Param			limit			query	integer	false	"Limit of nodes to return. Max 200."
//	@Param			cursor			query	string	false	"Cursor for pagination"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.ListNodesResp}
//	@Router			/nodes [get]
func (h *NodeHandler) ListNodes(c *gin.Context) {
	req := ListNodesReq{}
	if !bindQuery(c, &req) {
		return
	}

	out, err := h.svc.List(c.Request.Context(), service.ListNodesInput{
		Search:      req.Search,
		FilesPublic: req.FilesPublic,
		Limit:       limitOf(req.Limit),
		Cursor:      req.Cursor,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: ListNodesResp{
		Items:      serializer.NewNodes(out.Items),
		NextCursor: out.NextCursor,
		HasMore:    out.HasMore,
	}})
}

// CreateNode godoc
//
//	@Summary		Create node
//	@Description	Register a node and issue its API token. The token is only returned here and on rotation.
//	@Tags			node
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	service.CreateNodeInput	true	"CreateNode payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=serializer.NodeWithToken}
//	@Failure		409	{object}	serializer.Response
//	@Router			/nodes [post]
func (h *NodeHandler) CreateNode(c *gin.Context) {
	req := service.CreateNodeInput{}
	if !bind(c, &req) {
		return
	}

	n, token, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: serializer.NodeWithToken{Node: serializer.NewNode(n), Token: token}})
}

// GetNode godoc
//
//	@Summary	Get node
//	@Tags		node
//	@Produce	json
//	@Param		vsn	path	string	true	"Node VSN"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=serializer.Node}
//	@Router		/nodes/{vsn} [get]
func (h *NodeHandler) GetNode(c *gin.Context) {
	n, err := h.svc.Get(c.Request.Context(), c.Param("vsn"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewNode(n)})
}

// UpdateNode godoc
//
//	@Summary	Update node
//	@Tags		node
//	@Accept		json
//	@Produce	json
//	@Param		vsn		path	string					true	"Node VSN"
//	@Param		payload	body	service.UpdateNodeInput	true	"UpdateNode payload"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=serializer.Node}
//	@Router		/nodes/{vsn} [patch]
func (h *NodeHandler) UpdateNode(c *gin.Context) {
	req := service.UpdateNodeInput{}
	if !bind(c, &req) {
		return
	}

	n, err := h.svc.Update(c.Request.Context(), c.Param("vsn"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewNode(n)})
}

// DeleteNode godoc
//
//	@Summary		Delete node
//	@Description	Delete a node, its token and its project memberships
//	@Tags			node
//	@Produce		json
//	@Param			vsn	path	string	true	"Node VSN"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/nodes/{vsn} [delete]
func (h *NodeHandler) DeleteNode(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("vsn")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}

// RotateToken godoc
//
//	@Summary		Rotate node token
//	@Description	Replace the node's token. The previous token stops working immediately.
//	@Tags			node
//	@Produce		json
//	@Param			vsn	path	string	true	"Node VSN"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=serializer.NodeWithToken}
//	@Router			/nodes/{vsn}/token [post]
func (h *NodeHandler) RotateToken(c *gin.Context) {
	n, token, err := h.svc.RotateToken(c.Request.Context(), c.Param("vsn"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NodeWithToken{Node: serializer.NewNode(n), Token: token}})
}

// GetSelf godoc
//
//	@Summary		Get authenticated node
//	@Description	Return the calling node and the projects it belongs to
//	@Tags			node
//	@Produce		json
//	@Security		NodeAuth
//	@Success		200	{object}	serializer.Response{data=serializer.NodeSelf}
//	@Router			/node/self [get]
func (h *NodeHandler) GetSelf(c *gin.Context) {
	n, ok := c.MustGet("node").(*model.Node)
	if !ok {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", errors.New("node not found")))
		return
	}

	ms, err := h.svc.Memberships(c.Request.Context(), n)
	if err != nil {
		writeError(c, err)
		return
	}

	out := serializer.NodeSelf{Node: serializer.NewNode(n), Projects: make([]serializer.NodeMembership, 0, len(ms))}
	for _, m := range ms {
		out.Projects = append(out.Projects, serializer.NewNodeMembership(m))
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}
