package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tapandstamp/pkg/entities"
	"tapandstamp/pkg/middlewares"
	"tapandstamp/pkg/passkit"
	"tapandstamp/pkg/usecases"
	"tapandstamp/utilities"
)

type PassKitController struct {
	router      *gin.RouterGroup
	useCases    usecases.PassUseCaseImply
	middleWares *middlewares.Middlewares
}

// NewPassKitController
func NewPassKitController(router *gin.RouterGroup, passUseCases usecases.PassUseCaseImply, middleWare *middlewares.Middlewares) *PassKitController {
	return &PassKitController{
		router:      router,
		useCases:    passUseCases,
		middleWares: middleWare,
	}
}

// InitRoutes registers the pass download route and the Wallet web service.
func (p *PassKitController) InitRoutes() {
	p.router.GET("passes/:memberId", p.DownloadPass)

	v1 := p.router.Group("passkit/v1")
	{
		v1.GET("devices/:deviceId/registrations/:passTypeId", p.UpdatedSerials)
		v1.POST("log", p.Log)

		authed := v1.Group("", p.middleWares.PassAuth)
		authed.POST("devices/:deviceId/registrations/:passTypeId/:serialNumber", p.RegisterDevice)
		authed.DELETE("devices/:deviceId/registrations/:passTypeId/:serialNumber", p.UnregisterDevice)
		authed.GET("passes/:passTypeId/:serialNumber", p.LatestPass)
	}
}

func writePass(ctx *gin.Context, pass *usecases.PassDownload) {
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, pass.Filename))
	ctx.Header("Cache-Control", "no-store")
	if !pass.LastModified.IsZero() {
		ctx.Header("Last-Modified", utilities.HTTPDate(pass.LastModified))
	}
	ctx.Data(http.StatusOK, passkit.ContentType, pass.Data)
}

// DownloadPass serves the .pkpass for "Add to Apple Wallet".
func (p *PassKitController) DownloadPass(ctx *gin.Context) {
	memberID := ctx.Param("memberId")
	log := utilities.NewLoggerWithFields("DownloadPass", map[string]interface{}{"member": memberID})

	pass, err := p.useCases.DownloadPass(ctx, memberID)
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			log.WithError(err).Error("failed to generate pass")
		}
		ctx.JSON(status, entities.ErrorResponse{
			StatusCode: status,
			Error:      code,
			Message:    "failed to generate pass",
		})
		return
	}

	writePass(ctx, pass)
}

// RegisterDevice answers 201 for a new registration and 200 when it already existed.
func (p *PassKitController) RegisterDevice(ctx *gin.Context) {
	log := utilities.NewLoggerWithFields("RegisterDevice", map[string]interface{}{"device": ctx.Param("deviceId")})

	var req entities.RegisterDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}

	created, err := p.useCases.RegisterDevice(
		ctx, ctx.Param("deviceId"), ctx.Param("passTypeId"), ctx.Param("serialNumber"), req.PushToken,
	)
	if err != nil {
		status, _ := errorStatus(err)
		if status == http.StatusInternalServerError {
			log.WithError(err).Error("failed to register device")
		}
		ctx.Status(status)
		return
	}

	if created {
		ctx.Status(http.StatusCreated)
		return
	}
	ctx.Status(http.StatusOK)
}

func (p *PassKitController) UnregisterDevice(ctx *gin.Context) {
	log := utilities.NewLoggerWithFields("UnregisterDevice", map[string]interface{}{"device": ctx.Param("deviceId")})

	err := p.useCases.UnregisterDevice(ctx, ctx.Param("deviceId"), ctx.Param("passTypeId"), ctx.Param("serialNumber"))
	if err != nil {
		status, _ := errorStatus(err)
		log.WithError(err).Error("failed to unregister device")
		ctx.Status(status)
		return
	}

	ctx.Status(http.StatusOK)
}

// UpdatedSerials answers 204 when none of the device's passes changed.
func (p *PassKitController) UpdatedSerials(ctx *gin.Context) {
	log := utilities.NewLoggerWithFields("UpdatedSerials", map[string]interface{}{"device": ctx.Param("deviceId")})

	since := utilities.ParseUpdatedSince(ctx.Query("passesUpdatedSince"))

	resp, err := p.useCases.UpdatedSerials(ctx, ctx.Param("deviceId"), ctx.Param("passTypeId"), since)
	if err != nil {
		status, _ := errorStatus(err)
		if status == http.StatusInternalServerError {
			log.WithError(err).Error("failed to list updated passes")
		}
		ctx.Status(status)
		return
	}

	if resp == nil {
		ctx.Status(http.StatusNoContent)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// LatestPass answers 304 when If-Modified-Since is not older than the member's last change.
func (p *PassKitController) LatestPass(ctx *gin.Context) {
	log := utilities.NewLoggerWithFields("LatestPass", map[string]interface{}{"serial": ctx.Param("serialNumber")})

	var since time.Time
	if header := ctx.GetHeader("If-Modified-Since"); header != "" {
		if t, err := http.ParseTime(header); err == nil {
			since = t
		}
	}

	pass, err := p.useCases.LatestPass(ctx, ctx.Param("passTypeId"), ctx.Param("serialNumber"), since)
	if err != nil {
		if errors.Is(err, usecases.ErrNotModified) {
			ctx.Status(http.StatusNotModified)
			return
		}
		status, _ := errorStatus(err)
		if status == http.StatusInternalServerError {
			log.WithError(err).Error("failed to build latest pass")
		}
		ctx.Status(status)
		return
	}

	writePass(ctx, pass)
}

// Log records diagnostics Wallet posts about this web service.
func (p *PassKitController) Log(ctx *gin.Context) {
	log := utilities.NewLogger("PassKitLog")

	var req entities.DeviceLogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}

	for _, line := range req.Logs {
		log.Warn(line)
	}

	ctx.Status(http.StatusOK)
}
