package usecases

import (
	"context"

	"firebase.google.com/go/v4/messaging"

	"tapandstamp/pkg/entities"
	"tapandstamp/pkg/metrics"
	"tapandstamp/pkg/repo"
	"tapandstamp/pkg/repo/driver/medium"
	"tapandstamp/utilities"
)

// PassNotifier tells every wallet holding a member's card to refresh it.
type PassNotifier interface {
	NotifyPassUpdate(ctx context.Context, member entities.Member, rewardGoal int) entities.PushSummary
}

type APNsSender interface {
	SendPassUpdateToAllDevices(ctx context.Context, memberID, passTypeID string, lookup medium.PushTokenLookup) medium.PushResult
}

type FCMSender interface {
	PushMessageToClient(ctx context.Context, memberID string, msg messaging.Message, deviceIDs []string) (medium.PushResult, error)
}

type pushNotifier struct {
	passTypeID    string
	registrations repo.RegistrationRepoImply
	apns          APNsSender
	fcm           FCMSender
}

// NewPassNotifier pushes through APNs for Apple Wallet and FCM for Google and web cards.
// Either sender may be nil when that platform is not configured.
func NewPassNotifier(passTypeID string, registrations repo.RegistrationRepoImply, apns APNsSender, fcm FCMSender) PassNotifier {
	return &pushNotifier{passTypeID: passTypeID, registrations: registrations, apns: apns, fcm: fcm}
}

func (n *pushNotifier) NotifyPassUpdate(ctx context.Context, member entities.Member, rewardGoal int) entities.PushSummary {
	log := utilities.NewLoggerWithFields("NotifyPassUpdate", map[string]interface{}{
		"member": member.ID,
	})

	var summary entities.PushSummary

	if n.apns != nil {
		result := n.apns.SendPassUpdateToAllDevices(ctx, member.ID, n.passTypeID, n.registrations)
		metrics.RecordPushes(entities.DeviceApple, result.Sent, result.Failed)
		summary.Sent += result.Sent
		summary.Failed += result.Failed
		summary.Skipped = summary.Skipped || result.Skipped
	}

	if n.fcm != nil {
		msg := medium.PassUpdateMessage(member.ID, member.StampCount, rewardGoal, member.RewardAvailable)
		for _, platform := range []string{entities.DeviceGoogle, entities.DeviceWeb} {
			tokens, err := n.registrations.PushTokens(ctx, member.ID, platform)
			if err != nil {
				log.WithError(err).Errorf("failed to list %s push tokens", platform)
				summary.Skipped = true
				continue
			}
			if len(tokens) == 0 {
				continue
			}

			result, err := n.fcm.PushMessageToClient(ctx, member.ID, msg, tokens)
			if err != nil {
				log.WithError(err).Errorf("failed to push %s pass update", platform)
				summary.Failed += len(tokens)
				continue
			}
			metrics.RecordPushes(platform, result.Sent, result.Failed)
			summary.Sent += result.Sent
			summary.Failed += result.Failed
		}
	}

	log.Infof("pass update push result: sent %d failed %d", summary.Sent, summary.Failed)

	return summary
}
