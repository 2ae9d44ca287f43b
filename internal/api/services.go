package api

import (
	"github.com/pointsbot/pointsbot-server/internal/service"
)

// Services groups the business services used by the API server.
type Services struct {
	Keys      *service.KeyService
	Claims    *service.ClaimService
	Referrals *service.ReferralService
	Users     *service.UserService
	Platforms *service.PlatformService
	Admins    *service.AdminService
	Reports   *service.ReportService
	Settings  *service.SettingsService
	Stats     *service.StatsService
}
