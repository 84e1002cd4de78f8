package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/config"
	"github.com/tourguider/backend/controllers"
	"github.com/tourguider/backend/middleware"
)

// initPublicRoutes registers the routes the site calls without a login
func initPublicRoutes(router *gin.RouterGroup, cfg *config.Config) {
	limited := middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute)

	router.POST("/quotes", limited, controllers.SubmitQuote)
	router.POST("/download", limited, controllers.DownloadFile)

	payment := router.Group("/payment")
	{
		payment.GET("/products", controllers.GetProducts)
		payment.POST("/checkout", limited, controllers.CreateCheckoutSession)
		payment.GET("/session", controllers.GetCheckoutSession)
		payment.GET("/history", controllers.GetPaymentHistory)
		payment.POST("/history", controllers.GetPaymentStats)
		payment.POST("/webhook", controllers.StripeWebhook)

		refunds := payment.Group("/refund", middleware.AdminAuthMiddleware())
		{
			refunds.POST("", controllers.ProcessRefund)
			refunds.PATCH("", controllers.PartialRefund)
		}
	}

	notifications := router.Group("/notifications")
	{
		notifications.POST("", limited, controllers.CreateNotification)
		notifications.GET("", controllers.GetNotifications)
		notifications.PATCH("", controllers.UpdateNotification)
		notifications.DELETE("", controllers.DeleteNotification)
		notifications.GET("/ws", controllers.NotificationSocket)

		email := notifications.Group("/email", middleware.AdminAuthMiddleware())
		{
			email.POST("", controllers.SendEmailNotification)
			email.GET("", controllers.GetEmailNotifications)
		}
	}

	push := router.Group("/push")
	{
		push.POST("/subscribe", limited, controllers.Subscribe)
		push.GET("/subscribe", controllers.GetSubscriptions)
		push.DELETE("/unsubscribe", controllers.Unsubscribe)
		push.PATCH("/unsubscribe", controllers.Resubscribe)
		push.GET("/vapid-public-key", controllers.GetVAPIDPublicKey)

		send := push.Group("/send", middleware.AdminAuthMiddleware())
		{
			send.POST("", controllers.SendPush)
			send.GET("", controllers.GetPushLogs)
		}
	}

	router.GET("/referral/validate", controllers.ValidateReferralCode)
}
