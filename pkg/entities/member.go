package entities

import "time"

const (
	DeviceApple  = "apple"
	DeviceGoogle = "google"
	DeviceWeb    = "web"
)

type Member struct {
	ID              string     `json:"id"`
	MerchantID      string     `json:"merchant_id"`
	Name            string     `json:"name,omitempty"`
	DeviceType      string     `json:"device_type,omitempty"`
	StampCount      int        `json:"stamp_count"`
	RewardAvailable bool       `json:"reward_available"`
	LastStampAt     *time.Time `json:"last_stamp_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type MemberWithMerchant struct {
	Member   Member
	Merchant Merchant
}

type Visit struct {
	ID         string    `json:"id"`
	MerchantID string    `json:"merchant_id"`
	MemberID   string    `json:"member_id"`
	StampedAt  time.Time `json:"stamped_at"`
}

// StampState is returned by the stamp, check and claim endpoints.
type StampState struct {
	StampCount        int    `json:"stampCount"`
	RewardGoal        int    `json:"rewardGoal"`
	RewardReady       bool   `json:"rewardReady"`
	MemberName        string `json:"memberName,omitempty"`
	MerchantName      string `json:"merchantName"`
	CooldownRemaining int    `json:"cooldownRemaining,omitempty"`
}

type JoinRequest struct {
	Name       string `json:"name"`
	DeviceType string `json:"deviceType"`
}

type JoinResponse struct {
	MemberID     string `json:"memberId"`
	MerchantName string `json:"merchantName"`
	RewardGoal   int    `json:"rewardGoal"`
	AuthToken    string `json:"authToken"`
}
