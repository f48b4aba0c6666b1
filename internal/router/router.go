package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/souschef/internal/handler"
	"go.uber.org/zap"
)

// Options 路由配置
type Options struct {
	SessionSecret string
	// CORSOrigins 为空时不启用跨域
	CORSOrigins []string
	Logger      *zap.Logger
}

// requestLogger 每个请求记录一条结构化日志
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 12 * 3600})
	r.Use(sessions.Sessions("souschef_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	r.GET("/health", api.HealthCheck)

	r.POST("/login", api.Login)
	r.GET("/logout", api.Logout)

	// 需要认证的路由
	auth := r.Group("")
	auth.Use(handler.AuthRequired())
	{
		auth.GET("/flashes", api.Flashes)

		// 食材确认页：厨房统计前置步骤未完成时跳转到这里
		auth.GET("/delivery/meal", api.GetDayMeal)

		apiGroup := auth.Group("/api")
		{
			apiGroup.GET("/me", api.CurrentUser)

			apiGroup.GET("/settings", api.GetSystemSettings)
			apiGroup.PUT("/settings", api.UpdateSystemSettings)

			apiGroup.GET("/clients", api.ListClients)
			apiGroup.POST("/clients", api.CreateClient)
			apiGroup.GET("/clients/:id", api.GetClient)
			apiGroup.PUT("/clients/:id", api.UpdateClient)
			apiGroup.PUT("/clients/:id/schedule", api.SetClientSchedule)
			apiGroup.PUT("/clients/:id/dietary", api.SetClientDietary)
			apiGroup.POST("/clients/:id/cancelled-dates", api.AddCancelledDates)
			apiGroup.DELETE("/clients/:id/cancelled-dates/:date", api.RemoveCancelledDate)

			apiGroup.GET("/scheduled-statuses", api.ListScheduledStatuses)
			apiGroup.POST("/scheduled-statuses", api.ScheduleStatus)
			apiGroup.POST("/scheduled-statuses/process", api.ProcessScheduledStatuses)
			apiGroup.PUT("/scheduled-statuses/:id", api.RescheduleStatus)
			apiGroup.DELETE("/scheduled-statuses/:id", api.CancelScheduledStatus)

			apiGroup.GET("/notes", api.ListNotes)
			apiGroup.POST("/notes", api.CreateNote)
			apiGroup.PATCH("/notes/:id", api.SetNoteRead)

			apiGroup.GET("/components", api.ListComponents)
			apiGroup.POST("/components", api.CreateComponent)
			apiGroup.POST("/ingredients", api.CreateIngredient)

			apiGroup.GET("/orders", api.ListOrders)
			apiGroup.POST("/orders", api.CreateOrder)
			apiGroup.POST("/orders/batch", api.CreateBatchOrders)
			apiGroup.POST("/orders/generate", api.GenerateOrders)
			apiGroup.PATCH("/orders/status", api.UpdateOrderStatuses)
			apiGroup.GET("/orders/:id", api.GetOrder)
			apiGroup.POST("/orders/:id/status", api.ChangeOrderStatus)

			delivery := apiGroup.Group("/delivery")
			{
				delivery.GET("/meal", api.GetDayMeal)
				delivery.POST("/meal", api.ConfirmDayIngredients)
				delivery.POST("/meal/restore", api.RestoreDayRecipe)
				delivery.GET("/kitchen-count", api.KitchenCount)
				delivery.GET("/labels", api.MealLabels)
				delivery.GET("/routes", api.RoutesOverview)
				delivery.GET("/route-sheets", api.RouteSheets)
			}

			apiGroup.GET("/routes", api.ListRoutes)
			apiGroup.POST("/routes", api.CreateRoute)
			apiGroup.PUT("/routes/:id", api.UpdateRoute)
			apiGroup.POST("/routes/:id/organize", api.OrganizeRoute)
			apiGroup.GET("/routes/:id/history", api.GetRouteHistory)
			apiGroup.PUT("/routes/:id/history", api.UpdateRouteHistory)
			apiGroup.GET("/routes/:id/deliveries", api.RouteDeliveryList)
			apiGroup.GET("/routes/:id/sheet", api.RouteSheet)

			apiGroup.GET("/billings", api.ListBillings)
			apiGroup.POST("/billings", api.CreateBilling)
			apiGroup.GET("/billings/preview", api.PreviewBilling)
			apiGroup.GET("/billings/:id", api.GetBilling)
			apiGroup.DELETE("/billings/:id", api.DeleteBilling)
			apiGroup.GET("/billings/:id/export", api.ExportBilling)
			apiGroup.GET("/billings/:id/clients/:clientId/orders", api.BillingClientOrders)
		}
	}

	return r
}
