// internal/push/migration/migrator.go
package migration

import (
	"context"
	"fmt"

	"notification-gateway/internal/common/logger"
	"notification-gateway/internal/models"
)

// Registrar re-registers one device.
type Registrar interface {
	RegisterDevice(ctx context.Context, req *models.RegistrationRequest) error
}

type Report struct {
	ClientID    int64    `json:"clientId"`
	Total       int      `json:"total"`
	Migrated    int      `json:"migrated"`
	Failed      int      `json:"failed"`
	FailedUsers []string `json:"failedUsers,omitempty"`
}

type Migrator struct {
	source    DeviceSource
	registrar Registrar
	logger    logger.Logger
}

func NewMigrator(source DeviceSource, registrar Registrar, log logger.Logger) *Migrator {
	return &Migrator{
		source:    source,
		registrar: registrar,
		logger:    log.WithFields(map[string]interface{}{"component": "migration"}),
	}
}

// MigrateClient re-registers every device of clientID, one at a time.
// Device failures are counted and do not stop the run; cancellation does.
func (m *Migrator) MigrateClient(ctx context.Context, clientID int64) (*Report, error) {
	devices, err := m.source.DevicesForClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	report := &Report{ClientID: clientID, Total: len(devices)}
	m.logger.Info("Starting client migration", map[string]interface{}{
		"clientId": clientID,
		"devices":  len(devices),
	})

	for i := range devices {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("migration of client %d interrupted after %d devices: %w", clientID, i, err)
		}

		device := devices[i]
		if err := m.registrar.RegisterDevice(ctx, &device); err != nil {
			report.Failed++
			report.FailedUsers = append(report.FailedUsers, device.UserID)
			continue
		}
		report.Migrated++
	}

	m.logger.Info("Client migration finished", map[string]interface{}{
		"clientId": clientID,
		"migrated": report.Migrated,
		"failed":   report.Failed,
	})
	return report, nil
}
