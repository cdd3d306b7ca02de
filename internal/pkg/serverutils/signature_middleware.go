package serverutils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// WebhookSignatureMiddleware verifies the x-hub-signature-256 header against
// an HMAC-SHA256 of the raw request body. Requests without a valid signature
// never reach the webhook handler. An empty secret disables verification,
// which only makes sense in local development.
func WebhookSignatureMiddleware(appSecret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if appSecret == "" {
			return ctx.Next()
		}

		header := ctx.Get("x-hub-signature-256")
		if !strings.HasPrefix(header, "sha256=") {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse("Missing signature"))
		}

		mac := hmac.New(sha256.New, []byte(appSecret))
		mac.Write(ctx.Body())
		expected := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(header, "sha256="))) {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse("Invalid signature"))
		}
		return ctx.Next()
	}
}
