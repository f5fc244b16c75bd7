package entities

import "time"

type DeviceRegistration struct {
	MemberID   string    `json:"member_id"`
	DeviceID   string    `json:"device_id"`
	PassTypeID string    `json:"pass_type_id"`
	PushToken  string    `json:"push_token"`
	Platform   string    `json:"platform"`
	Created    time.Time `json:"created"`
}

type RegisterDeviceRequest struct {
	PushToken string `json:"pushToken" binding:"required"`
}

// SerialNumbersResponse is the body Apple Wallet expects when listing updatable passes.
type SerialNumbersResponse struct {
	SerialNumbers []string `json:"serialNumbers"`
	LastUpdated   string   `json:"lastUpdated"`
}

type DeviceLogRequest struct {
	Logs []string `json:"logs"`
}
