package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/waggle-sensor/facilities/internal/modules/serializer"
	"github.com/waggle-sensor/facilities/internal/modules/service"
)

type UserHandler struct {
	svc     service.UserService
	baseURL string
}

// NewUserHandler builds the user handler. baseURL prefixes the url field of serialized users.
func NewUserHandler(s service.UserService, baseURL string) *UserHandler {
	return &UserHandler{svc: s, baseURL: baseURL}
}

type ListUsersReq struct {
	Search      string `form:"search" json:"search" example:"alice"`
	IsSuperuser *bool  `form:"is_superuser" json:"is_superuser"`
	IsApproved  *bool  `form:"is_approved" json:"is_approved"`
	Limit       *int   `form:"limit" json:"limit" binding:"omitempty,min=0,max=200" example:"20"`
	Cursor      string `form:"cursor" json:"cursor"`
}

type ListUsersResp struct {
	Items      []serializer.User `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
}

// ListUsers godoc
//
//	@Summary		List users
//	@Description	List users ordered by username. If limit is not provided or 0, all users will be returned.
//	@Tags			user
//	@Produce		json
//	@Param			search			query	string	false	"Match against username, name or email"
//	@Param			is_superuser	query	boolean	false	"Filter by superuser flag"
//	@Param			is_approved		query	boolean	false	"Filter by approval flag"
//	@Param			limit			query	integer	false	"Limit of users to return. Max 200."
//	@Param			cursor			query	string	false	"Cursor for pagination"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.ListUsersResp}
//	@Router			/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	req := ListUsersReq{}
	if !bindQuery(c, &req) {
		return
	}

	out, err := h.svc.List(c.Request.Context(), service.ListUsersInput{
		Search:      req.Search,
		IsSuperuser: req.IsSuperuser,
		IsApproved:  req.IsApproved,
		Limit:       limitOf(req.Limit),
		Cursor:      req.Cursor,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: ListUsersResp{
		Items:      serializer.NewUsers(out.Items, h.baseURL),
		NextCursor: out.NextCursor,
		HasMore:    out.HasMore,
	}})
}

// CreateUser godoc
//
//	@Summary		Create user
//	@Tags			user
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	service.CreateUserInput	true	"CreateUser payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=serializer.User}
//	@Failure		409	{object}	serializer.Response
//	@Router			/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	req := service.CreateUserInput{}
	if !bind(c, &req) {
		return
	}

	u, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: serializer.NewUser(u, h.baseURL)})
}

// GetUser godoc
//
//	@Summary	Get user
//	@Tags		user
//	@Produce	json
//	@Param		username	path	string	true	"Username"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=serializer.User}
//	@Router		/users/{username} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewUser(u, h.baseURL)})
}

// UpdateUser godoc
//
//	@Summary		Update user
//	@Description	Partial update. Omitted fields are left unchanged.
//	@Tags			user
//	@Accept			json
//	@Produce		json
//	@Param			username	path	string					true	"Username"
//	@Param			payload		body	service.UpdateUserInput	true	"UpdateUser payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=serializer.User}
//	@Router			/users/{username} [patch]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	req := service.UpdateUserInput{}
	if !bind(c, &req) {
		return
	}

	u, err := h.svc.Update(c.Request.Context(), c.Param("username"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewUser(u, h.baseURL)})
}

// DeleteUser godoc
//
//	@Summary		Delete user
//	@Description	Delete a user and cascade delete its project memberships
//	@Tags			user
//	@Produce		json
//	@Param			username	path	string	true	"Username"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/users/{username} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("username")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}

// GetProfile godoc
//
//	@Summary	Get user profile
//	@Tags		user
//	@Produce	json
//	@Param		username	path	string	true	"Username"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=serializer.Profile}
//	@Router		/users/{username}/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewProfile(u)})
}

// UpdateProfile godoc
//
//	@Summary		Update user profile
//	@Description	Update organization, department, bio and SSH public keys. At most five keys are accepted.
//	@Tags			user
//	@Accept			json
//	@Produce		json
//	@Param			username	path	string						true	"Username"
//	@Param			payload		body	service.UpdateProfileInput	true	"UpdateProfile payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=serializer.Profile}
//	@Router			/users/{username}/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	req := service.UpdateProfileInput{}
	if !bind(c, &req) {
		return
	}

	u, err := h.svc.UpdateProfile(c.Request.Context(), c.Param("username"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: serializer.NewProfile(u)})
}

// GetKeyFingerprints godoc
//
//	@Summary	Describe user SSH keys
//	@Tags		user
//	@Produce	json
//	@Param		username	path	string	true	"Username"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=[]sshkeys.Key}
//	@Router		/users/{username}/keys [get]
func (h *UserHandler) GetKeyFingerprints(c *gin.Context) {
	keys, err := h.svc.KeyFingerprints(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: keys})
}

// ListUserMemberships godoc
//
//	@Summary	List projects of a user
//	@Tags		user
//	@Produce	json
//	@Param		username	path	string	true	"Username"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=[]serializer.UserMembership}
//	@Router		/users/{username}/projects [get]
func (h *UserHandler) ListUserMemberships(c *gin.Context) {
	ms, err := h.svc.Memberships(c.Request.Context(), c.Param("username"))
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
