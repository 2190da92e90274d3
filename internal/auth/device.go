package auth

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/mssola/useragent"

	"github.com/healthhub/healthhub-service/internal/domain"
)

// DeviceFromRequest captures the caller's user agent and IP. The header is
// copied out of the request buffer since records outlive the request.
func DeviceFromRequest(c *fiber.Ctx) domain.DeviceInfo {
	return domain.DeviceInfo{
		UserAgent: utils.CopyString(c.Get(fiber.HeaderUserAgent)),
		IPAddress: c.IP(),
	}
}

// DescribeDevice renders a user agent as "<browser> on <os>".
func DescribeDevice(userAgent string) string {
	if userAgent == "" {
		return "unknown device"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	platform := ua.OS()
	if browser == "" {
		browser = "unknown browser"
	}
	if platform == "" {
		platform = "unknown OS"
	}
	return fmt.Sprintf("%s on %s", browser, platform)
}
