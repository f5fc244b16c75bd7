package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tapandstamp/config"
	"tapandstamp/pkg/consts"
	"tapandstamp/pkg/entities"
	"tapandstamp/pkg/usecases"
	"tapandstamp/utilities"
)

type Middlewares struct {
	passes usecases.PassUseCaseImply
}

// NewMiddlewares
func NewMiddlewares(passes usecases.PassUseCaseImply) *Middlewares {
	return &Middlewares{
		passes: passes,
	}
}

// authToken splits an Authorization header into scheme and credential.
func authToken(ctx *gin.Context) (string, string, bool) {
	parts := strings.Fields(ctx.GetHeader("Authorization"))
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// StaffAuth accepts a merchant staff key as a bearer token.
func (m *Middlewares) StaffAuth(ctx *gin.Context) {
	log := utilities.NewLogger("StaffAuth")

	scheme, token, ok := authToken(ctx)
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		ctx.AbortWithStatusJSON(
			http.StatusUnauthorized, entities.ErrorResponse{
				StatusCode: http.StatusUnauthorized,
				Message:    "Missing Authorization in API header",
			},
		)
		return
	}

	merchantID, present := config.StaffMerchant(token)
	if !present {
		log.Warn("unknown staff key presented")
		ctx.AbortWithStatusJSON(
			http.StatusUnauthorized, entities.ErrorResponse{
				StatusCode: http.StatusUnauthorized,
				Message:    "Authentication failed",
			},
		)
		return
	}

	ctx.Set(consts.StaffMerchantID, merchantID)

	ctx.Next()
}

// PassAuth verifies the ApplePass token Wallet sends with pass and registration requests.
func (m *Middlewares) PassAuth(ctx *gin.Context) {
	log := utilities.NewLogger("PassAuth")

	scheme, token, ok := authToken(ctx)
	if !ok || scheme != consts.ApplePassAuthScheme {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	memberID, err := m.passes.AuthorizePass(ctx.Param("passTypeId"), ctx.Param("serialNumber"), token)
	if err != nil {
		switch {
		case errors.Is(err, usecases.ErrUnknownPassType), errors.Is(err, usecases.ErrInvalidSerial):
			ctx.AbortWithStatus(http.StatusNotFound)
		default:
			log.Warnf("rejected pass token for serial %s", ctx.Param("serialNumber"))
			ctx.AbortWithStatus(http.StatusUnauthorized)
		}
		return
	}

	ctx.Set(consts.PassMemberID, memberID)

	ctx.Next()
}

// MemberAuth accepts the member's own pass token as a bearer token on member-scoped routes.
func (m *Middlewares) MemberAuth(ctx *gin.Context) {
	scheme, token, ok := authToken(ctx)
	if !ok || !strings.EqualFold(scheme, "Bearer") || !m.passes.AuthorizeMember(ctx.Param("memberId"), token) {
		ctx.AbortWithStatusJSON(
			http.StatusUnauthorized, entities.ErrorResponse{
				StatusCode: http.StatusUnauthorized,
				Message:    "Authentication failed",
			},
		)
		return
	}

	ctx.Set(consts.PassMemberID, ctx.Param("memberId"))

	ctx.Next()
}
