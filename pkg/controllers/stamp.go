package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"tapandstamp/pkg/consts"
	"tapandstamp/pkg/entities"
	"tapandstamp/pkg/middlewares"
	"tapandstamp/pkg/usecases"
	"tapandstamp/utilities"
)

type StampController struct {
	router      *gin.RouterGroup
	useCases    usecases.StampUseCaseImply
	middleWares *middlewares.Middlewares
}

// NewStampController
func NewStampController(router *gin.RouterGroup, stampUseCases usecases.StampUseCaseImply, middleWare *middlewares.Middlewares) *StampController {
	return &StampController{
		router:      router,
		useCases:    stampUseCases,
		middleWares: middleWare,
	}
}

// InitRoutes registers the staff-only stamping routes.
func (s *StampController) InitRoutes() {
	staff := s.router.Group("", s.middleWares.StaffAuth)
	{
		staff.GET("stamp/:memberId/check", s.Check)
		staff.POST("stamp/:memberId", s.Stamp)
		staff.POST("claim/:memberId", s.Claim)
	}
}

type stampAction func(ctx *gin.Context, staffMerchantID, memberID string) (*entities.StampState, error)

func (s *StampController) handle(ctx *gin.Context, name, failure, success string, action stampAction) {
	memberID := ctx.Param("memberId")
	merchantID := cast.ToString(ctx.MustGet(consts.StaffMerchantID))
	log := utilities.NewLoggerWithFields(name, map[string]interface{}{
		"merchant": merchantID,
		"member":   memberID,
	})

	state, err := action(ctx, merchantID, memberID)
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			log.WithError(err).Error(failure)
		}

		resp := entities.ErrorResponse{
			StatusCode: status,
			Error:      code,
			Message:    errorMessage(err, status),
		}
		var stampErr *usecases.StampError
		if errors.As(err, &stampErr) {
			resp.Data = stampErr.State
		}

		ctx.JSON(status, resp)
		return
	}

	ctx.JSON(http.StatusOK, entities.Response{
		StatusCode: 200,
		Message:    success,
		Data:       state,
	})
}

// Check returns the member's card without stamping it.
func (s *StampController) Check(ctx *gin.Context) {
	s.handle(ctx, "Check", "failed to check member", "member card", func(c *gin.Context, merchantID, memberID string) (*entities.StampState, error) {
		return s.useCases.Check(c, merchantID, memberID)
	})
}

// Stamp adds a stamp to the member's card.
func (s *StampController) Stamp(ctx *gin.Context) {
	s.handle(ctx, "Stamp", "failed to stamp member", "stamp added", func(c *gin.Context, merchantID, memberID string) (*entities.StampState, error) {
		return s.useCases.Stamp(c, merchantID, memberID)
	})
}

// Claim redeems the member's reward.
func (s *StampController) Claim(ctx *gin.Context) {
	s.handle(ctx, "Claim", "failed to claim reward", "reward claimed", func(c *gin.Context, merchantID, memberID string) (*entities.StampState, error) {
		return s.useCases.Claim(c, merchantID, memberID)
	})
}
