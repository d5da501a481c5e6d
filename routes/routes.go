package routes

import (
	"portfoliobackend/controllers"

	"github.com/gin-gonic/gin"
)

func Routes(r *gin.Engine, portfolio controllers.PortfolioControllerI, screener controllers.ScreenerControllerI) {

	v1 := r.Group("/api")

	{
		v1.GET("/keepServerRunning", controllers.HealthController.IsRunning)
		v1.GET("/portfolio", portfolio.GetPortfolio)
		v1.GET("/portfolio/sectors", portfolio.GetSectors)
		v1.DELETE("/portfolio/cache/:symbol", portfolio.InvalidateCache)
		v1.GET("/inspect-screener", screener.InspectScreener)
		v1.GET("/test-screener", screener.TestScreener)
	}
}
