package middleware

import (
	"reflect"
	"strings"

	jwtPkg "CarelineGolang/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	AdminTokenSecret = "JWT_ADMIN_TOKEN_SECRET"
)

// NewAdminTokenMiddleware guards the knowledge base administration routes.
// Regular chat traffic is anonymous and never passes through here.
func (m *middleware) NewAdminTokenMiddleware(ctx *fiber.Ctx) error {
	clientIP := ctx.IP()
	authHeader := ctx.Get("Authorization")

	m.log.WithFields(logrus.Fields{
		"path":      ctx.Path(),
		"method":    ctx.Method(),
		"client_ip": clientIP,
	}).Debug("Incoming admin request")

	if authHeader == "" {
		m.log.WithFields(logrus.Fields{
			"error": "Authorization header is missing",
		}).Warn("Authorization header check")
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized, admin token invalid or expired",
		})
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		m.log.WithFields(logrus.Fields{
			"error": "Authorization header format is invalid",
		}).Warn("Authorization header check")
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized, admin token invalid or expired",
		})
	}

	adminToken, err := jwtPkg.VerifyTokenHeader(ctx, AdminTokenSecret)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Token verification failed")
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized, admin token invalid or expired",
		})
	}

	claims, ok := adminToken.Claims.(jwt.MapClaims)
	if !ok {
		m.log.WithFields(logrus.Fields{
			"error": "Invalid token claims",
		}).Warn("Token claims check")
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized, admin token invalid or expired",
		})
	}

	m.log.WithFields(logrus.Fields{
		"claim_keys":  reflect.ValueOf(claims).MapKeys(),
		"exp":         claims["exp"],
		"role_exists": claims["role"] != nil,
	}).Debug("Token claims")

	if claims["role"] == nil {
		m.log.WithFields(logrus.Fields{
			"error": "Token claims are missing required fields",
		}).Warn("Token claims check")
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized, admin token invalid or expired",
		})
	}

	role, ok := claims["role"].(string)
	if !ok || role != "admin" {
		m.log.WithFields(logrus.Fields{
			"error": "Token role is not admin",
		}).Warn("Token claims check")
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden, admin role required",
		})
	}

	ctx.Locals("admin_role", role)

	return ctx.Next()
}
