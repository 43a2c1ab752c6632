package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type Camera struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	URL          string    `json:"url"`
	Location     string    `json:"location"`
	Zone         *string   `json:"zone"`
	Manufacturer string    `json:"manufacturer"`
	Model        string    `json:"model"`
	Status       string    `json:"status"`
	Capabilities []string  `json:"capabilities"`
	HasPTZ       bool      `json:"has_ptz"`
	HasAudio     bool      `json:"has_audio"`
	DeviceSerial *string   `json:"hikconnect_device_serial"`
	AccountID    *string   `json:"hikconnect_account_id"`
	ChannelNo    *int      `json:"hikconnect_channel_no"`
	CreatedAt    time.Time `json:"created_at"`
}

type CameraModel struct {
	DB DBTX
}

func (m CameraModel) ExistsForChannel(ctx context.Context, serial string, channel int) (bool, error) {
	var exists bool
	err := m.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cameras WHERE hikconnect_device_serial = $1 AND hikconnect_channel_no = $2)`,
		serial, channel,
	).Scan(&exists)
	return exists, err
}

// Create inserts c and fills in its id and creation time. A concurrent insert
// for the same device channel surfaces as ErrDuplicate.
func (m CameraModel) Create(ctx context.Context, c *Camera) error {
	if c.Capabilities == nil {
		c.Capabilities = []string{}
	}
	query := `
		INSERT INTO cameras (
			name, type, url, location, manufacturer, model, status,
			hikconnect_device_serial, hikconnect_account_id, hikconnect_channel_no,
			capabilities, has_ptz, has_audio
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	err := m.DB.QueryRowContext(ctx, query,
		c.Name, c.Type, c.URL, c.Location, c.Manufacturer, c.Model, c.Status,
		c.DeviceSerial, c.AccountID, c.ChannelNo,
		pq.Array(c.Capabilities), c.HasPTZ, c.HasAudio,
	).Scan(&c.ID, &c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (m CameraModel) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	res, err := m.DB.ExecContext(ctx, `DELETE FROM cameras WHERE hikconnect_account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
