package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/waggle-sensor/facilities/docs"
	"github.com/waggle-sensor/facilities/internal/config"
	"github.com/waggle-sensor/facilities/internal/middleware"
	"github.com/waggle-sensor/facilities/internal/modules/handler"
	"github.com/waggle-sensor/facilities/internal/modules/serializer"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	Config                   *config.Config
	Log                      *zap.Logger
	NodeAuth                 middleware.NodeAuthenticator
	UserHandler              *handler.UserHandler
	NodeHandler              *handler.NodeHandler
	ProjectHandler           *handler.ProjectHandler
	CatalogHandler           *handler.CatalogHandler
	AllocationRequestHandler *handler.AllocationRequestHandler
	ManifestHandler          *handler.ManifestHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	// Initialize logger for serializer package
	serializer.SetLogger(d.Log)

	r := gin.New()
	r.Use(gin.Recovery())

	// Add OpenTelemetry middleware if enabled (using configuration system)
	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(middleware.OtelTracing(d.Config.App.Name))
		// Add trace ID to response header
		r.Use(middleware.TraceID())
	}

	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	// swagger
	r.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	admin := middleware.AdminAuth(d.Config)

	// public
	{
		ar := v1.Group("/allocation-requests")
		ar.GET("/schema", d.AllocationRequestHandler.GetSchema)
		ar.GET("/form-data", d.AllocationRequestHandler.GetFormData)
		ar.POST("", d.AllocationRequestHandler.SubmitAllocationRequest)
		ar.GET("/:username", d.AllocationRequestHandler.GetAllocationRequest)

		v1.GET("/projects", d.ProjectHandler.ListPublicProjects)
		v1.GET("/science-fields", d.CatalogHandler.ListScienceFields)
		v1.GET("/funding-sources", d.CatalogHandler.ListFundingSources)
		v1.POST("/funding-sources", d.CatalogHandler.CreateFundingSource)
	}

	node := v1.Group("/node", middleware.NodeAuth(d.NodeAuth))
	{
		node.GET("/self", d.NodeHandler.GetSelf)
	}

	users := v1.Group("/users", admin)
	{
		users.GET("", d.UserHandler.ListUsers)
		users.POST("", d.UserHandler.CreateUser)
		users.GET("/:username", d.UserHandler.GetUser)
		users.PATCH("/:username", d.UserHandler.UpdateUser)
		users.DELETE("/:username", d.UserHandler.DeleteUser)
		users.GET("/:username/profile", d.UserHandler.GetProfile)
		users.PUT("/:username/profile", d.UserHandler.UpdateProfile)
		users.GET("/:username/keys", d.UserHandler.GetKeyFingerprints)
		users.GET("/:username/projects", d.UserHandler.ListUserMemberships)
	}

	nodes := v1.Group("/nodes", admin)
	{
		nodes.GET("", d.NodeHandler.ListNodes)
		nodes.POST("", d.NodeHandler.CreateNode)
		nodes.GET("/:vsn", d.NodeHandler.GetNode)
		nodes.PATCH("/:vsn", d.NodeHandler.UpdateNode)
		nodes.DELETE("/:vsn", d.NodeHandler.DeleteNode)
		nodes.POST("/:vsn/token", d.NodeHandler.RotateToken)
	}

	v1.GET("/admin/projects", admin, d.ProjectHandler.ListProjects)
	projects := v1.Group("/projects", admin)
	{
		projects.POST("", d.ProjectHandler.CreateProject)
		projects.GET("/:name", d.ProjectHandler.GetProject)
		projects.PATCH("/:name", d.ProjectHandler.UpdateProject)
		projects.DELETE("/:name", d.ProjectHandler.DeleteProject)

		projects.GET("/:name/users", d.ProjectHandler.ListUserMemberships)
		projects.PUT("/:name/users/:username", d.ProjectHandler.SetUserMembership)
		projects.DELETE("/:name/users/:username", d.ProjectHandler.RemoveUserMembership)
		projects.GET("/:name/nodes", d.ProjectHandler.ListNodeMemberships)
		projects.PUT("/:name/nodes/:vsn", d.ProjectHandler.SetNodeMembership)
		projects.DELETE("/:name/nodes/:vsn", d.ProjectHandler.RemoveNodeMembership)
	}

	v1.POST("/science-fields", admin, d.CatalogHandler.CreateScienceField)
	v1.DELETE("/science-fields/:id", admin, d.CatalogHandler.DeleteScienceField)
	v1.DELETE("/funding-sources/:id", admin, d.CatalogHandler.DeleteFundingSource)

	arAdmin := v1.Group("/allocation-requests", admin)
	{
		arAdmin.GET("", d.AllocationRequestHandler.ListAllocationRequests)
		arAdmin.POST("/:username/approve", d.AllocationRequestHandler.ApproveAllocationRequest)
		arAdmin.DELETE("/:username", d.AllocationRequestHandler.DeleteAllocationRequest)
	}

	hardware := v1.Group("/hardware", admin)
	{
		hardware.GET("/compute", d.ManifestHandler.ListComputeHardware)
		hardware.POST("/compute", d.ManifestHandler.CreateComputeHardware)
		hardware.GET("/resource", d.ManifestHandler.ListResourceHardware)
		hardware.POST("/resource", d.ManifestHandler.CreateResourceHardware)
		hardware.GET("/sensor", d.ManifestHandler.ListSensorHardware)
		hardware.POST("/sensor", d.ManifestHandler.CreateSensorHardware)
	}

	v1.POST("/capabilities", admin, d.ManifestHandler.CreateCapabilities)
	v1.POST("/tags", admin, d.ManifestHandler.CreateTags)
	v1.POST("/labels", admin, d.ManifestHandler.CreateLabels)

	manifests := v1.Group("/manifests", admin)
	{
		manifests.GET("", d.ManifestHandler.ListManifests)
		manifests.POST("", d.ManifestHandler.CreateNodeData)
		manifests.GET("/:vsn", d.ManifestHandler.GetManifest)
		manifests.DELETE("/:vsn", d.ManifestHandler.DeleteNodeData)
		manifests.PUT("/:vsn/tags", d.ManifestHandler.SetTags)
		manifests.POST("/:vsn/computes", d.ManifestHandler.AddCompute)
		manifests.POST("/:vsn/computes/:compute/sensors", d.ManifestHandler.AddComputeSensor)
		manifests.POST("/:vsn/sensors", d.ManifestHandler.AddNodeSensor)
		manifests.POST("/:vsn/resources", d.ManifestHandler.AddResource)
		manifests.POST("/:vsn/publish", d.ManifestHandler.PublishManifest)
	}

	return r
}
