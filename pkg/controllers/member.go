package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tapandstamp/pkg/entities"
	"tapandstamp/pkg/middlewares"
	"tapandstamp/pkg/passkit/assets"
	"tapandstamp/pkg/usecases"
	"tapandstamp/utilities"
)

type MemberController struct {
	router      *gin.RouterGroup
	useCases    usecases.PassUseCaseImply
	middleWares *middlewares.Middlewares
}

// NewMemberController
func NewMemberController(router *gin.RouterGroup, passUseCases usecases.PassUseCaseImply, middleWare *middlewares.Middlewares) *MemberController {
	return &MemberController{
		router:      router,
		useCases:    passUseCases,
		middleWares: middleWare,
	}
}

// InitRoutes initializes the member facing routes.
func (m *MemberController) InitRoutes() {
	m.router.POST("merchants/:slug/join", m.Join)
	m.router.GET("members/:memberId/strip", m.Strip)

	member := m.router.Group("members/:memberId", m.middleWares.MemberAuth)
	{
		member.GET("contract", m.Contract)
		member.POST("push-token", m.RegisterPushToken)
	}
}

func failure(ctx *gin.Context, err error, message string) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		message = internalErrorMessage
	}
	ctx.JSON(status, entities.ErrorResponse{
		StatusCode: status,
		Error:      code,
		Message:    message,
	})
}

// Join enrols a new member on a merchant's loyalty card.
func (m *MemberController) Join(ctx *gin.Context) {
	slug := ctx.Param("slug")
	log := utilities.NewLoggerWithFields("Join", map[string]interface{}{"merchant": slug})

	var req entities.JoinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, entities.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Error:      "invalid_request",
			Message:    err.Error(),
		})
		return
	}

	resp, err := m.useCases.JoinMerchant(ctx, slug, req.Name, req.DeviceType)
	if err != nil {
		log.WithError(err).Error("failed to join merchant")
		failure(ctx, err, err.Error())
		return
	}

	ctx.JSON(http.StatusCreated, entities.Response{
		StatusCode: http.StatusCreated,
		Message:    "joined",
		Data:       resp,
	})
}

// Strip renders the stamp strip PNG used by Google Wallet and the web card.
func (m *MemberController) Strip(ctx *gin.Context) {
	log := utilities.NewLoggerWithFields("Strip", map[string]interface{}{"member": ctx.Param("memberId")})

	platform := assets.Platform(ctx.DefaultQuery("platform", string(assets.PlatformGoogle)))

	strip, err := m.useCases.StripImage(ctx, ctx.Param("memberId"), platform)
	if err != nil {
		log.WithError(err).Error("failed to render strip")
		failure(ctx, err, "failed to render strip")
		return
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.Data(http.StatusOK, strip.MIME, strip.Data)
}

func (m *MemberController) Contract(ctx *gin.Context) {
	contract, err := m.useCases.Contract(ctx, ctx.Param("memberId"))
	if err != nil {
		failure(ctx, err, err.Error())
		return
	}

	ctx.JSON(http.StatusOK, entities.Response{
		StatusCode: 200,
		Message:    "pass contract",
		Data:       contract,
	})
}

type pushTokenRequest struct {
	Platform  string `json:"platform" binding:"required"`
	PushToken string `json:"pushToken" binding:"required"`
}

// RegisterPushToken stores an FCM token for the member's Google Wallet or web card.
func (m *MemberController) RegisterPushToken(ctx *gin.Context) {
	log := utilities.NewLoggerWithFields("RegisterPushToken", map[string]interface{}{"member": ctx.Param("memberId")})

	var req pushTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, entities.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Error:      "invalid_request",
			Message:    err.Error(),
		})
		return
	}

	if err := m.useCases.RegisterPushToken(ctx, ctx.Param("memberId"), req.Platform, req.PushToken); err != nil {
		log.WithError(err).Error("failed to register push token")
		failure(ctx, err, err.Error())
		return
	}

	ctx.JSON(http.StatusOK, entities.Response{
		StatusCode: 200,
		Message:    "push token registered",
	})
}
