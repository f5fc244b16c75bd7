package consts

// gin context keys
const (
	StaffMerchantID = "STAFF_MERCHANT_ID"
	PassMemberID    = "PASS_MEMBER_ID"
)

const (
	ApplePassAuthScheme = "ApplePass"
	PassDownloadSuffix  = "-loyalty.pkpass"
)

// error codes returned to the stamping app
const (
	ErrCodeRewardPending = "reward_pending"
	ErrCodeCooldown      = "cooldown"
	ErrCodeNoReward      = "no_reward"
)

const (
	Merchants                 = "merchants"
	MerchantsBySlug           = "merchants_by_slug"
	Members                   = "members"
	Visits                    = "visits"
	PassRegistrations         = "pass_registrations"
	PassRegistrationsByDevice = "pass_registrations_by_device"
)

const (
	APNsHostProduction = "api.push.apple.com"
	APNsHostSandbox    = "api.sandbox.push.apple.com"
)
