package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tapandstamp/pkg/entities"
	"tapandstamp/pkg/metrics"
	"tapandstamp/pkg/repo"
	"tapandstamp/pkg/reward"
	"tapandstamp/utilities"
)

type StampUseCases struct {
	repo            repo.MemberRepoImply
	notifier        PassNotifier
	cooldownMinutes int
	now             func() time.Time
}

// StampUseCaseImply covers what merchant staff do at the counter.
type StampUseCaseImply interface {
	Check(ctx context.Context, staffMerchantID, memberID string) (*entities.StampState, error)
	Stamp(ctx context.Context, staffMerchantID, memberID string) (*entities.StampState, error)
	Claim(ctx context.Context, staffMerchantID, memberID string) (*entities.StampState, error)
}

func NewStampUseCases(memberRepo repo.MemberRepoImply, notifier PassNotifier, cooldownMinutes int) StampUseCaseImply {
	return &StampUseCases{
		repo:            memberRepo,
		notifier:        notifier,
		cooldownMinutes: cooldownMinutes,
		now:             utilities.TimeNow,
	}
}

func stampState(m *entities.MemberWithMerchant) entities.StampState {
	return entities.StampState{
		StampCount:   m.Member.StampCount,
		RewardGoal:   m.Merchant.RewardGoal,
		RewardReady:  m.Member.RewardAvailable,
		MemberName:   m.Member.Name,
		MerchantName: m.Merchant.Name,
	}
}

// load fetches the member and checks the staff member works for the member's merchant.
func (s *StampUseCases) load(ctx context.Context, staffMerchantID, memberID string) (*entities.MemberWithMerchant, error) {
	m, err := s.repo.GetMemberWithMerchant(ctx, memberID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	if m.Member.MerchantID != staffMerchantID {
		return nil, ErrForbidden
	}

	return m, nil
}

func (s *StampUseCases) Check(ctx context.Context, staffMerchantID, memberID string) (*entities.StampState, error) {
	m, err := s.load(ctx, staffMerchantID, memberID)
	if err != nil {
		return nil, err
	}

	state := stampState(m)
	state.CooldownRemaining = reward.CooldownRemainingSeconds(m.Member.LastStampAt, s.cooldownMinutes, s.now())

	return &state, nil
}

// Stamp adds one stamp. A pending reward or an active cooldown refuses the stamp before anything is written.
func (s *StampUseCases) Stamp(ctx context.Context, staffMerchantID, memberID string) (*entities.StampState, error) {
	log := utilities.NewLoggerWithFields("Stamp", map[string]interface{}{
		"merchant": staffMerchantID,
		"member":   memberID,
	})

	m, err := s.load(ctx, staffMerchantID, memberID)
	if err != nil {
		metrics.RecordStampEvent("stamp", "rejected")
		return nil, err
	}

	now := s.now()
	state := stampState(m)

	if reward.CurrentState(m.Member.RewardAvailable) == reward.StateRewardPending {
		metrics.RecordStampEvent("stamp", "reward_pending")
		state.RewardReady = true
		return nil, &StampError{Err: ErrRewardPending, State: state}
	}

	if reward.IsCooldownActive(m.Member.LastStampAt, s.cooldownMinutes, now) {
		metrics.RecordStampEvent("stamp", "cooldown")
		state.CooldownRemaining = reward.CooldownRemainingSeconds(m.Member.LastStampAt, s.cooldownMinutes, now)
		return nil, &StampError{Err: ErrCooldown, State: state}
	}

	count, ready, err := reward.Apply(m.Member.StampCount, m.Merchant.RewardGoal)
	if err != nil {
		return nil, fmt.Errorf("merchant %s: %w", m.Merchant.ID, err)
	}

	if err := s.repo.ApplyStamp(ctx, m.Member, count, ready, now); err != nil {
		metrics.RecordStampEvent("stamp", "failed")
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrConcurrentUpdate
		}
		log.WithError(err).Error("failed to update stamp count")
		return nil, err
	}

	if _, err := s.repo.RecordVisit(ctx, m.Member.MerchantID, m.Member.ID, now); err != nil {
		log.WithError(err).Error("failed to record visit")
	}

	metrics.RecordStampEvent("stamp", "ok")

	m.Member.StampCount = count
	m.Member.RewardAvailable = ready
	m.Member.LastStampAt = &now
	s.notify(ctx, m)

	state = stampState(m)
	return &state, nil
}

// Claim redeems the reward and resets the card with no cooldown.
func (s *StampUseCases) Claim(ctx context.Context, staffMerchantID, memberID string) (*entities.StampState, error) {
	log := utilities.NewLoggerWithFields("Claim", map[string]interface{}{
		"merchant": staffMerchantID,
		"member":   memberID,
	})

	m, err := s.load(ctx, staffMerchantID, memberID)
	if err != nil {
		metrics.RecordStampEvent("claim", "rejected")
		return nil, err
	}

	if reward.CurrentState(m.Member.RewardAvailable) != reward.StateRewardPending {
		metrics.RecordStampEvent("claim", "no_reward")
		return nil, &StampError{Err: ErrNoReward, State: stampState(m)}
	}

	if err := s.repo.ClaimReward(ctx, m.Member.ID, s.now()); err != nil {
		metrics.RecordStampEvent("claim", "failed")
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrConcurrentUpdate
		}
		log.WithError(err).Error("failed to claim reward")
		return nil, err
	}

	metrics.RecordStampEvent("claim", "ok")

	m.Member.StampCount = 0
	m.Member.RewardAvailable = false
	m.Member.LastStampAt = nil
	s.notify(ctx, m)

	state := stampState(m)
	return &state, nil
}

// notify never fails the stamp or claim that triggered it.
func (s *StampUseCases) notify(ctx context.Context, m *entities.MemberWithMerchant) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyPassUpdate(ctx, m.Member, m.Merchant.RewardGoal)
}
