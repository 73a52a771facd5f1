package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/waggle-sensor/facilities/internal/modules/serializer"
	"github.com/waggle-sensor/facilities/internal/modules/service"
)

type ProjectHandler struct {
	svc service.ProjectService
}

func NewProjectHandler(s service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: s}
}

// ListPublicProjects godoc
//
//	@Summary		List public projects
//	@Description	List the projects flagged include_in_api with their member usernames and VSNs
//	@Tags			project
//	@Produce		json
//	@Success		200	{object}	serializer.Response{data=[]serializer.Project}
//	@Router			/projects [get]
func (h *ProjectHandler) ListPublicProjects(c *gin.Context) {
	ps, err := h.svc.ListPublic(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewProjects(ps)})
}

type ListProjectsReq struct {
	Search       string `form:"search" json:"search"`
	IncludeInAPI *bool  `form:"include_in_api" json:"include_in_api"`
	Limit        *int   `form:"limit" json:"limit" binding:"omitempty,min=0,max=200" example:"20"`
	Cursor       string `form:"cursor" json:"cursor"`
}

type ListProjectsResp struct {
	Items      []serializer.Project `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
	HasMore    bool                 `json:"has_more"`
}

// ListProjects godoc
//
//	@Summary		List all projects
//	@Description	List every project ordered by name. If limit is not provided or 0, all projects will be returned.
//	@Tags			project
//	@Produce		json
//	@Param			search			query	string	false	"Name substring"
//	@Param			include_in_api	query	boolean	false	"Filter by include_in_api"
//	@Param			limit			query	integer	false	"Limit of projects to return. Max 200."
//	@Param			cursor			query	string	false	"Cursor for pagination"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.ListProjectsResp}
//	@Router			/admin/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	req := ListProjectsReq{}
	if !bindQuery(c, &req) {
		return
	}

	out, err := h.svc.List(c.Request.Context(), service.ListProjectsInput{
		Search:       req.Search,
		IncludeInAPI: req.IncludeInAPI,
		Limit:        limitOf(req.Limit),
		Cursor:       req.Cursor,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: ListProjectsResp{
		Items:      serializer.NewProjects(out.Items),
		NextCursor: out.NextCursor,
		HasMore:    out.HasMore,
	}})
}

// CreateProject godoc
//
//	@Summary	Create project
//	@Tags		project
//	@Accept		json
//	@Produce	json
//	@Param		payload	body	service.CreateProjectInput	true	"CreateProject payload"
//	@Security	BearerAuth
//	@Success	201	{object}	serializer.Response{data=serializer.Project}
//	@Failure	409	{object}	serializer.Response
//	@Router		/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	req := service.CreateProjectInput{}
	if !bind(c, &req) {
		return
	}

	p, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: serializer.NewProject(p)})
}

// GetProject godoc
//
//	@Summary	Get project
//	@Tags		project
//	@Produce	json
//	@Param		name	path	string	true	"Project name"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=serializer.Project}
//	@Router		/projects/{name} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewProject(p)})
}

// UpdateProject godoc
//
//	@Summary	Update project
//	@Tags		project
//	@Accept		json
//	@Produce	json
//	@Param		name	path	string						true	"Project name"
//	@Param		payload	body	service.UpdateProjectInput	true	"UpdateProject payload"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=serializer.Project}
//	@Router		/projects/{name} [patch]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	req := service.UpdateProjectInput{}
	if !bind(c, &req) {
		return
	}

	p, err := h.svc.Update(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewProject(p)})
}

// DeleteProject godoc
//
//	@Summary		Delete project
//	@Description	Delete a project and its memberships. Allocation requests pointing at it keep their row.
//	@Tags			project
//	@Produce		json
//	@Param			name	path	string	true	"Project name"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/projects/{name} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("name")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}

// ListUserMemberships godoc
//
//	@Summary	List project users
//	@Tags		project
//	@Produce	json
//	@Param		name	path	string	true	"Project name"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=[]serializer.UserMembership}
//	@Router		/projects/{name}/users [get]
func (h *ProjectHandler) ListUserMemberships(c *gin.Context) {
	ms, err := h.svc.ListUserMemberships(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]serializer.UserMembership, 0, len(ms))
	for _, m := range ms {
		out = append(out, serializer.NewUserMembership(m))
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// SetUserMembership godoc
//
//	@Summary		Add or update a project user
//	@Description	Create the membership or replace its permissions
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			name		path	string					true	"Project name"
//	@Param			username	path	string					true	"Username"
//	@Param			payload		body	service.UserPermissions	true	"Permissions"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=serializer.UserMembership}
//	@Router			/projects/{name}/users/{username} [put]
func (h *ProjectHandler) SetUserMembership(c *gin.Context) {
	req := service.UserPermissions{}
	if !bind(c, &req) {
		return
	}

	m, err := h.svc.SetUserMembership(c.Request.Context(), c.Param("name"), c.Param("username"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewUserMembership(m)})
}

// RemoveUserMembership godoc
//
//	@Summary	Remove a project user
//	@Tags		project
//	@Produce	json
//	@Param		name		path	string	true	"Project name"
//	@Param		username	path	string	true	"Username"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{}
//	@Router		/projects/{name}/users/{username} [delete]
func (h *ProjectHandler) RemoveUserMembership(c *gin.Context) {
	if err := h.svc.RemoveUserMembership(c.Request.Context(), c.Param("name"), c.Param("username")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}

// ListNodeMemberships godoc
//
//	@Summary	List project nodes
//	@Tags		project
//	@Produce	json
//	@Param		name	path	string	true	"Project name"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=[]serializer.NodeMembership}
//	@Router		/projects/{name}/nodes [get]
func (h *ProjectHandler) ListNodeMemberships(c *gin.Context) {
	ms, err := h.svc.ListNodeMemberships(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]serializer.NodeMembership, 0, len(ms))
	for _, m := range ms {
		out = append(out, serializer.NewNodeMembership(m))
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// SetNodeMembership godoc
//
//	@Summary	Add or update a project node
//	@Tags		project
//	@Accept		json
//	@Produce	json
//	@Param		name	path	string					true	"Project name"
//	@Param		vsn		path	string					true	"Node VSN"
//	@Param		payload	body	service.NodePermissions	true	"Permissions"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=serializer.NodeMembership}
//	@Router		/projects/{name}/nodes/{vsn} [put]
func (h *ProjectHandler) SetNodeMembership(c *gin.Context) {
	req := service.NodePermissions{}
	if !bind(c, &req) {
		return
	}

	m, err := h.svc.SetNodeMembership(c.Request.Context(), c.Param("name"), c.Param("vsn"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewNodeMembership(m)})
}

// RemoveNodeMembership godoc
//
//	@Summary	Remove a project node
//	@Tags		project
//	@Produce	json
//	@Param		name	path	string	true	"Project name"
//	@Param		vsn		path	string	true	"Node VSN"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{}
//	@Router		/projects/{name}/nodes/{vsn} [delete]
func (h *ProjectHandler) RemoveNodeMembership(c *gin.Context) {
	if err := h.svc.RemoveNodeMembership(c.Request.Context(), c.Param("name"), c.Param("vsn")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}
