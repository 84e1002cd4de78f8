package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/tourguider/backend/controllers"
	"github.com/tourguider/backend/middleware"
)

// initUserRoutes initializes social login and the routes of signed-in customers
func initUserRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.GET("/:provider/login", controllers.SocialLogin)
		auth.GET("/:provider/callback", controllers.SocialCallback)
	}

	// Looked up by email, like the customer's payment history
	router.GET("/user/quotes", controllers.GetUserQuotes)

	user := router.Group("/user")
	user.Use(middleware.UserAuthMiddleware())
	{
		user.GET("/me", controllers.GetMe)
	}

	referral := router.Group("/referral")
	referral.Use(middleware.UserAuthMiddleware())
	{
		referral.POST("", controllers.ApplyReferral)
		referral.GET("", controllers.GetReferrals)
		referral.GET("/stats", controllers.GetReferralStats)
	}
}
