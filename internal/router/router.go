package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo-contrib/echoprometheus"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"gorm.io/gorm"

	"timetrack/internal/auth"
	"timetrack/internal/cache"
	"timetrack/internal/config"
	"timetrack/internal/handler"
	"timetrack/internal/model"
	"timetrack/pkg/logger"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	gormDB *gorm.DB,
	cacheClient *cache.Client,
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
	clientHandler *handler.ClientHandler,
	userHandler *handler.UserHandler,
	reportHandler *handler.ReportHandler,
) {
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger.Get())

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("timetrack"))

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/healthz/ready", func(c echo.Context) error {
		sqlDB, err := gormDB.DB()
		if err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"database": "down"})
		}
		if err := cacheClient.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"redis": "down"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Secured routes (require JWT authentication)
	secured := api.Group("",
		echojwt.WithConfig(echojwt.Config{
			SigningKey:  []byte(cfg.JWTSecret),
			TokenLookup: "header:" + echo.HeaderAuthorization,
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return &auth.Claims{}
			},
		}),
		auth.PrincipalMiddleware(),
	)

	secured.GET("/me", func(c echo.Context) error {
		p, err := auth.PrincipalFromContext(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{
			"user_id": p.UserID,
			"email":   p.Email,
			"role":    p.Role,
		})
	})

	// Task routes
	secured.POST("/tasks", taskHandler.CreateTask)
	secured.GET("/tasks", taskHandler.ListTasks)
	secured.POST("/tasks/:id/stop", taskHandler.StopTask)
	secured.PUT("/tasks/:id", taskHandler.UpdateTask)
	secured.DELETE("/tasks/:id", taskHandler.DeleteTask)

	// Client routes; listing is role-scoped inside the service, the rest
	// is admin only.
	secured.GET("/clients", clientHandler.ListClients)
	secured.GET("/clients/:id", clientHandler.GetClient)
	secured.POST("/clients", clientHandler.CreateClient)
	secured.PUT("/clients/:id", clientHandler.UpdateClient)
	secured.DELETE("/clients/:id", clientHandler.DeleteClient)

	// Report routes
	secured.GET("/reports/summary", reportHandler.Summary)

	// Admin user management
	admin := secured.Group("/users", RBAC(model.RoleAdmin))
	admin.GET("", userHandler.ListUsers)
	admin.POST("", userHandler.CreateUser)
	admin.GET("/:id", userHandler.GetUser)
	admin.PUT("/:id", userHandler.UpdateUser)
	admin.DELETE("/:id", userHandler.DeleteUser)
	admin.GET("/:id/clients", userHandler.ListUserClients)
	admin.POST("/:id/clients", userHandler.ReplaceUserClients)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
