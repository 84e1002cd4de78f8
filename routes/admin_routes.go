package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/controllers"
	"github.com/tourguider/backend/middleware"
)

// initAdminRoutes initializes all admin-related routes
func initAdminRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	{
		// Public admin routes
		admin.POST("/login", controllers.AdminLogin)

		// Protected admin routes
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.POST("/logout", controllers.AdminLogout)

			// Quote management
			admin.GET("/quotes", controllers.AdminListQuotes)
			admin.GET("/quotes/:id", controllers.AdminGetQuote)
			admin.PATCH("/quotes/:id/status", controllers.AdminUpdateQuoteStatus)

			// Payments and reports
			admin.GET("/payments", controllers.AdminListPayments)
			admin.GET("/payments/report/excel", controllers.DownloadPaymentReportExcel)
			admin.GET("/payments/report/pdf", controllers.DownloadPaymentReportPDF)
			admin.GET("/payments/:id", controllers.AdminGetPayment)

			// Referrals
			admin.PATCH("/referrals/:id", controllers.AdminUpdateReferral)

			// Admin channel
			admin.GET("/notifications", controllers.AdminGetNotifications)
			admin.GET("/notifications/ws", controllers.NotificationSocket)
		}
	}
}
