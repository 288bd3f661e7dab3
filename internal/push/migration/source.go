// internal/push/migration/source.go
package migration

import (
	"context"
	"database/sql"
	"fmt"

	"notification-gateway/internal/models"
)

const devicesQuery = `SELECT client_id, building_id, user_id, os, token FROM device_registrations WHERE client_id = $1 ORDER BY user_id`

// DeviceSource lists the devices registered for a client.
type DeviceSource interface {
	DevicesForClient(ctx context.Context, clientID int64) ([]models.RegistrationRequest, error)
}

// PostgresSource reads devices from the device_registrations table.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) DevicesForClient(ctx context.Context, clientID int64) ([]models.RegistrationRequest, error) {
	rows, err := s.db.QueryContext(ctx, devicesQuery, clientID)
	if err != nil {
		return nil, fmt.Errorf("query devices for client %d: %w", clientID, err)
	}
	defer rows.Close()

	var devices []models.RegistrationRequest
	for rows.Next() {
		var (
			d          models.RegistrationRequest
			buildingID sql.NullInt64
		)
		if err := rows.Scan(&d.ClientID, &buildingID, &d.UserID, &d.OS, &d.Token); err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		d.BuildingID = buildingID.Int64
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device rows: %w", err)
	}
	return devices, nil
}
