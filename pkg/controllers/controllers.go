package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tapandstamp/pkg/entities"
	"tapandstamp/pkg/middlewares"
	"tapandstamp/pkg/usecases"
)

type Controller struct {
	router      *gin.RouterGroup
	useCases    usecases.UseCaseImply
	middleWares *middlewares.Middlewares
}

// NewController
func NewController(
	router *gin.RouterGroup, useCases usecases.UseCaseImply, middleWare *middlewares.Middlewares,
) *Controller {
	return &Controller{
		router:      router,
		useCases:    useCases,
		middleWares: middleWare,
	}
}

// InitRoutes
func (c *Controller) InitRoutes() {
	c.router.GET("/", c.RootHandler)
	c.router.GET("/health", c.HealthHandler)
	c.router.GET("/db/health", c.DatabaseHealthHandler)
}

// InitMetricsRoute exposes the prometheus registry outside the API prefix.
func InitMetricsRoute(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (c *Controller) RootHandler(ctx *gin.Context) {
	ctx.JSON(
		http.StatusOK, entities.Response{
			StatusCode: 200,
			Message:    "Welcome to the Tap & Stamp API.",
		},
	)
}

// HealthHandler
func (c *Controller) HealthHandler(ctx *gin.Context) {
	ctx.JSON(
		http.StatusOK, entities.Response{
			StatusCode: 200,
			Message:    "Heath check ok",
		},
	)
}

func (c *Controller) DatabaseHealthHandler(ctx *gin.Context) {
	err := c.useCases.DBHealthHandler(ctx)
	if err != nil {
		ctx.JSON(
			http.StatusServiceUnavailable, entities.ErrorResponse{
				StatusCode: http.StatusServiceUnavailable,
				Message:    "unhealthy database",
			},
		)
		return
	}

	ctx.JSON(
		http.StatusOK, entities.Response{
			StatusCode: 200,
			Message:    "database health is okay",
		},
	)
}
