package router

import (
	"net/http"

	"github.com/freightport/backend/internal/interfaces/http/handler"
	"github.com/freightport/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the portal routes dispatch to
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Companies     *handler.CompanyHandler
	Orders        *handler.OrderHandler
	Tracking      *handler.TrackingHandler
	Bills         *handler.BillHandler
	Notifications *handler.NotificationHandler
	OCR           *handler.OCRHandler
	Files         *handler.FileHandler
	Dashboard     *handler.DashboardHandler
	System        *handler.SystemHandler

	// Socket upgrades /ws/notifications
	Socket gin.HandlerFunc
	// Metrics serves /metrics; nil leaves it unmounted
	Metrics http.Handler
	// Docs serves /swagger/*any behind its guard; nil leaves it unmounted
	Docs []gin.HandlerFunc
}

// rootRoutes holds the unversioned infrastructure endpoints
type rootRoutes struct {
	system  *handler.SystemHandler
	metrics http.Handler
	docs    []gin.HandlerFunc
}

func (r rootRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", r.system.Health)
	if r.metrics != nil {
		rg.GET("/metrics", gin.WrapH(r.metrics))
	}
	if len(r.docs) > 0 {
		rg.GET("/swagger/*any", r.docs...)
	}
}

// New builds the portal router. Call Setup to mount it.
func New(engine *gin.Engine, h Handlers, opts ...RouterOption) *Router {
	r := NewRouter(engine, opts...)
	r.RegisterRoot(rootRoutes{system: h.System, metrics: h.Metrics, docs: h.Docs})
	r.Register(Domains(h)...)
	return r
}

// Domains returns the versioned API, one group per business domain
func Domains(h Handlers) []*DomainGroup {
	staff := middleware.RequireStaff()

	system := NewDomainGroup("system", "")
	system.GET("/ping", h.System.Ping)
	system.GET("/system/info", h.System.GetSystemInfo)

	auth := NewDomainGroup("auth", "/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.RefreshToken)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/profile", h.Auth.GetProfile)
	auth.PUT("/profile", h.Auth.UpdateProfile)
	auth.PUT("/password", h.Auth.ChangePassword)
	auth.POST("/wechat/login", h.Auth.WechatLogin)
	auth.POST("/wechat/bind", h.Auth.WechatBind)

	admin := NewDomainGroup("admin", "/admin").Use(middleware.RequireAdmin())
	admin.Group("users", "/users").
		POST("", h.Users.CreateStaff).
		GET("", h.Users.List).
		POST("/:id/disable", h.Users.Disable).
		POST("/:id/enable", h.Users.Enable).
		POST("/:id/unlock", h.Users.Unlock)

	companies := NewDomainGroup("companies", "/companies")
	companies.POST("", h.Companies.Submit)
	companies.GET("", staff, h.Companies.List)
	companies.GET("/mine", h.Companies.GetMine)
	companies.PUT("/mine", h.Companies.Resubmit)
	companies.GET("/:id", h.Companies.Get)
	companies.POST("/:id/approve", staff, h.Companies.Approve)
	companies.POST("/:id/reject", staff, h.Companies.Reject)
	companies.POST("/:id/suspend", staff, h.Companies.Suspend)
	companies.POST("/:id/reinstate", staff, h.Companies.Reinstate)
	companies.PUT("/:id/credit-limit", staff, h.Companies.AdjustCreditLimit)

	orders := NewDomainGroup("orders", "/orders")
	orders.POST("", h.Orders.Create)
	orders.GET("", h.Orders.List)
	orders.GET("/export", h.Orders.Export)
	orders.GET("/:id", h.Orders.Get)
	orders.PUT("/:id", h.Orders.Update)
	orders.GET("/:id/history", h.Orders.History)
	orders.GET("/:id/shipments", h.Orders.Shipments)
	orders.POST("/:id/confirm", staff, h.Orders.Confirm)
	orders.POST("/:id/reject", staff, h.Orders.Reject)
	orders.POST("/:id/start", staff, h.Orders.Start)
	orders.POST("/:id/complete", staff, h.Orders.Complete)
	orders.POST("/:id/cancel", h.Orders.Cancel)

	tracking := NewDomainGroup("tracking", "/tracking")
	tracking.POST("/webhook", h.Tracking.Webhook)
	tracking.Group("shipments", "/shipments").
		POST("", h.Tracking.CreateShipment).
		GET("", h.Tracking.ListShipments).
		GET("/:id", h.Tracking.GetShipment).
		GET("/:id/events", h.Tracking.Events)
	tracking.Group("subscriptions", "/subscriptions").
		POST("", h.Tracking.Subscribe).
		DELETE("/:id", h.Tracking.Unsubscribe)

	bills := NewDomainGroup("bills", "/bills")
	bills.POST("", staff, h.Bills.Create)
	bills.GET("", h.Bills.List)
	bills.GET("/export", h.Bills.Export)
	bills.GET("/:id", h.Bills.Get)
	bills.GET("/:id/history", h.Bills.History)
	bills.PUT("/:id", staff, h.Bills.Update)
	bills.POST("/:id/issue", staff, h.Bills.Issue)
	bills.POST("/:id/payments", staff, h.Bills.RecordPayment)
	bills.POST("/:id/cancel", staff, h.Bills.Cancel)
	bills.GET("/:id/pdf", h.Bills.PDF)

	notifications := NewDomainGroup("notifications", "/notifications")
	notifications.GET("", h.Notifications.List)
	notifications.GET("/unread-count", h.Notifications.UnreadCount)
	notifications.POST("/:id/read", h.Notifications.MarkRead)
	notifications.POST("/read-all", h.Notifications.MarkAllRead)

	groups := []*DomainGroup{system, auth, admin, companies, orders, tracking, bills, notifications}

	if h.Socket != nil {
		groups = append(groups, NewDomainGroup("ws", "/ws").GET("/notifications", h.Socket))
	}

	groups = append(groups,
		NewDomainGroup("ocr", "/ocr").POST("/recognize", h.OCR.Recognize),
		NewDomainGroup("files", "/files").
			POST("/upload-url", h.Files.UploadURL).
			GET("/download-url", h.Files.DownloadURL),
		NewDomainGroup("dashboard", "/dashboard").GET("/summary", h.Dashboard.Summary),
	)
	return groups
}
