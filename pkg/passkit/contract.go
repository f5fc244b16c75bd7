package passkit

import (
	"time"

	"tapandstamp/pkg/entities"
)

type PassState string

const (
	PassStateIssued          PassState = "issued"
	PassStateRewardAvailable PassState = "reward-available"
)

// Contract summarises the pass a member holds, for listings and push bookkeeping.
type Contract struct {
	Serial     string    `json:"serial"`
	MerchantID string    `json:"merchantId"`
	MemberID   string    `json:"memberId"`
	StampCount int       `json:"stampCount"`
	RewardGoal int       `json:"rewardGoal"`
	State      PassState `json:"state"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func NewContract(member entities.Member, rewardGoal int, now time.Time) Contract {
	state := PassStateIssued
	if member.RewardAvailable || member.StampCount >= rewardGoal {
		state = PassStateRewardAvailable
	}

	return Contract{
		Serial:     SerialNumber(member.ID),
		MerchantID: member.MerchantID,
		MemberID:   member.ID,
		StampCount: member.StampCount,
		RewardGoal: rewardGoal,
		State:      state,
		UpdatedAt:  now.UTC(),
	}
}
