package reward

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidGoal   = errors.New("reward goal must be greater than zero")
	ErrNegativeCount = errors.New("stamp count cannot be negative")
)

// State is the stamping state of a member card.
type State string

const (
	StateNoReward      State = "no-reward"
	StateRewardPending State = "reward-pending"
)

// IsRewardReady reports whether count has reached goal.
func IsRewardReady(count, goal int) (bool, error) {
	if goal <= 0 {
		return false, ErrInvalidGoal
	}
	return count >= goal, nil
}

// NextStamp returns the stamp count after one more stamp, capped at goal.
func NextStamp(count, goal int) (int, error) {
	if goal <= 0 {
		return 0, ErrInvalidGoal
	}
	if count < 0 {
		return 0, ErrNegativeCount
	}

	next := count + 1
	if next > goal {
		return goal, nil
	}
	return next, nil
}

// CurrentState derives the card state from the stored reward flag.
func CurrentState(rewardAvailable bool) State {
	if rewardAvailable {
		return StateRewardPending
	}
	return StateNoReward
}

// IsCooldownActive reports whether a stamp made at lastStampAt still blocks a new one at now.
// A member that was never stamped is never on cooldown.
func IsCooldownActive(lastStampAt *time.Time, cooldownMinutes int, now time.Time) bool {
	if lastStampAt == nil {
		return false
	}
	return now.Sub(*lastStampAt) < cooldown(cooldownMinutes)
}

// CooldownRemainingSeconds returns the whole seconds (rounded up) left on the cooldown, 0 once expired.
func CooldownRemainingSeconds(lastStampAt *time.Time, cooldownMinutes int, now time.Time) int {
	if lastStampAt == nil {
		return 0
	}

	remaining := cooldown(cooldownMinutes) - now.Sub(*lastStampAt)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

func cooldown(minutes int) time.Duration {
	return time.Duration(minutes) * time.Minute
}

// Apply returns the count and reward flag after one stamp. Callers check the
// reward-pending state and the cooldown before applying.
func Apply(count, goal int) (int, bool, error) {
	next, err := NextStamp(count, goal)
	if err != nil {
		return 0, false, err
	}
	ready, err := IsRewardReady(next, goal)
	if err != nil {
		return 0, false, err
	}
	return next, ready, nil
}
