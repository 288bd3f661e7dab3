// internal/models/registration.go
package models

// RegistrationRequest is the body of POST /api/notifications/register.
type RegistrationRequest struct {
	ClientID   int64  `json:"clientId"`
	BuildingID int64  `json:"buildingId"`
	UserID     string `json:"userId"`
	OS         string `json:"os"`
	Token      string `json:"token"`
}
