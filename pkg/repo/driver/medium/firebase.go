package medium

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/spf13/cast"
	"google.golang.org/api/option"

	"tapandstamp/utilities"
)

// fcmSender is the part of the messaging client used here.
type fcmSender interface {
	SendEach(ctx context.Context, messages []*messaging.Message) (*messaging.BatchResponse, error)
}

type FirebaseModel struct {
	fcmClient fcmSender
}

var firebaseObj *FirebaseModel

func GetFirebaseClient() *FirebaseModel {
	return firebaseObj
}

func InitFirebase(ctx context.Context, credentialsPath string) error {
	// Use the path to your service account credential json file
	opt := option.WithCredentialsFile(credentialsPath)
	// Create a new firebase app
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("failed to created new app with config path %s: %w", credentialsPath, err)
	}
	// Get the FCM object
	fcmClient, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("failed to created new messaging client: %w", err)
	}

	firebaseObj = &FirebaseModel{fcmClient: fcmClient}

	return nil
}

// PassUpdateMessage is the data-only message that tells a Google Wallet or web card to refresh.
func PassUpdateMessage(memberID string, stampCount, rewardGoal int, rewardReady bool) messaging.Message {
	return messaging.Message{
		Data: map[string]string{
			"type":        "pass_update",
			"memberId":    memberID,
			"stampCount":  cast.ToString(stampCount),
			"rewardGoal":  cast.ToString(rewardGoal),
			"rewardReady": cast.ToString(rewardReady),
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}
}

// PushMessageToClient fans msg out to every device token and reports delivery counts.
func (fb *FirebaseModel) PushMessageToClient(ctx context.Context, memberID string, msg messaging.Message, deviceIDs []string) (PushResult, error) {
	log := utilities.NewLoggerWithFields(
		"firebase.PushMessageToClient", map[string]interface{}{
			"member": memberID,
		},
	)

	if len(deviceIDs) == 0 {
		return PushResult{}, nil
	}

	var messages []*messaging.Message
	for _, deviceID := range deviceIDs {
		newMsg := msg
		newMsg.Token = deviceID
		messages = append(messages, &newMsg)
	}

	resp, err := fb.fcmClient.SendEach(ctx, messages)
	if err != nil {
		return PushResult{}, err
	}

	result := PushResult{Sent: resp.SuccessCount, Failed: resp.FailureCount}
	if resp.FailureCount > 0 {
		for i, errResp := range resp.Responses {
			if errResp != nil && errResp.Error != nil {
				log.WithError(errResp.Error).Errorf("failed to push firebase pass update to %s", memberID)
				result.Failures = append(result.Failures, PushDeliveryError{
					PushToken: deviceIDs[i],
					Reason:    errResp.Error.Error(),
				})
			}
		}
	}

	log.Debugf("firebase pass update pushed to %s for %d device IDs", memberID, len(deviceIDs))

	return result, nil
}
