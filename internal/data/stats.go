package data

import (
	"context"
	"database/sql"
	"time"
)

type Stats struct {
	TotalAccounts     int        `json:"total_accounts"`
	ActiveAccounts    int        `json:"active_accounts"`
	TotalDevices      int        `json:"total_devices"`
	OnlineDevices     int        `json:"online_devices"`
	HikConnectCameras int        `json:"hikconnect_cameras"`
	LastSync          *time.Time `json:"last_sync"`
}

type StatsModel struct {
	DB DBTX
}

func (m StatsModel) Get(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM hikconnect_accounts),
			(SELECT COUNT(*) FROM hikconnect_accounts WHERE is_active = true),
			(SELECT COUNT(*) FROM hikconnect_devices),
			(SELECT COUNT(*) FROM hikconnect_devices WHERE status = 1),
			(SELECT COUNT(*) FROM cameras WHERE type = 'hikconnect'),
			(SELECT MAX(last_sync) FROM hikconnect_accounts)`

	var s Stats
	var lastSync sql.NullTime
	if err := m.DB.QueryRowContext(ctx, query).Scan(
		&s.TotalAccounts, &s.ActiveAccounts, &s.TotalDevices, &s.OnlineDevices, &s.HikConnectCameras, &lastSync,
	); err != nil {
		return nil, err
	}
	if lastSync.Valid {
		s.LastSync = &lastSync.Time
	}
	return &s, nil
}
