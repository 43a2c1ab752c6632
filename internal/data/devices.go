package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jerichox/jerichox-security/internal/hikconnect"
	"github.com/lib/pq"
)

// StreamURLs is the stream_urls JSONB document of a device.
type StreamURLs struct {
	RTSP     string `json:"rtsp"`
	HLS      string `json:"hls,omitempty"`
	Snapshot string `json:"snapshot"`
}

type Device struct {
	Serial          string                   `json:"device_serial"`
	Name            string                   `json:"device_name"`
	Type            string                   `json:"device_type"`
	Model           string                   `json:"device_model"`
	Version         string                   `json:"version"`
	Status          int                      `json:"status"`
	ChannelNumber   int                      `json:"channel_number"`
	SupportFunction []string                 `json:"support_function"`
	Manufacturer    string                   `json:"manufacturer"`
	AccountID       string                   `json:"account_id"`
	Capabilities    hikconnect.CapabilitySet `json:"device_capabilities"`
	StreamURLs      StreamURLs               `json:"stream_urls"`
	SyncedAt        time.Time                `json:"synced_at"`
	CameraCount     int                      `json:"camera_count"`
}

func (d *Device) Online() bool { return d.Status == 1 }

type DeviceModel struct {
	DB DBTX
}

const deviceColumns = `d.device_serial, d.device_name, d.device_type, d.device_model, d.version, d.status,
	d.channel_number, d.support_function, d.manufacturer, d.account_id, d.device_capabilities,
	d.stream_urls, d.synced_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner, extra ...any) (*Device, error) {
	var d Device
	var caps, urls []byte
	dest := append([]any{
		&d.Serial, &d.Name, &d.Type, &d.Model, &d.Version, &d.Status,
		&d.ChannelNumber, pq.Array(&d.SupportFunction), &d.Manufacturer, &d.AccountID, &caps,
		&urls, &d.SyncedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if len(caps) > 0 {
		if err := json.Unmarshal(caps, &d.Capabilities); err != nil {
			return nil, err
		}
	}
	if len(urls) > 0 {
		if err := json.Unmarshal(urls, &d.StreamURLs); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

// Upsert inserts the device or refreshes it by serial. account_id is only
// written on insert; the owning account after the call is stored back into d.
func (m DeviceModel) Upsert(ctx context.Context, d *Device) error {
	caps, err := json.Marshal(d.Capabilities)
	if err != nil {
		return err
	}
	urls, err := json.Marshal(d.StreamURLs)
	if err != nil {
		return err
	}
	if d.SupportFunction == nil {
		d.SupportFunction = []string{}
	}

	query := `
		INSERT INTO hikconnect_devices (
			device_serial, device_name, device_type, device_model, version, status,
			channel_number, support_function, manufacturer, account_id,
			device_capabilities, stream_urls, synced_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP)
		ON CONFLICT (device_serial) DO UPDATE SET
			device_name = EXCLUDED.device_name,
			device_type = EXCLUDED.device_type,
			device_model = EXCLUDED.device_model,
			version = EXCLUDED.version,
			status = EXCLUDED.status,
			channel_number = EXCLUDED.channel_number,
			support_function = EXCLUDED.support_function,
			manufacturer = EXCLUDED.manufacturer,
			device_capabilities = EXCLUDED.device_capabilities,
			stream_urls = EXCLUDED.stream_urls,
			synced_at = CURRENT_TIMESTAMP
		RETURNING account_id, synced_at`

	return m.DB.QueryRowContext(ctx, query,
		d.Serial, d.Name, d.Type, d.Model, d.Version, d.Status,
		d.ChannelNumber, pq.Array(d.SupportFunction), d.Manufacturer, d.AccountID,
		caps, urls,
	).Scan(&d.AccountID, &d.SyncedAt)
}

func (m DeviceModel) ListByAccount(ctx context.Context, accountID string) ([]*Device, error) {
	query := `
		SELECT ` + deviceColumns + `,
		       (SELECT COUNT(*) FROM cameras c WHERE c.hikconnect_device_serial = d.device_serial) AS camera_count
		FROM hikconnect_devices d
		WHERE d.account_id = $1
		ORDER BY d.device_name`

	rows, err := m.DB.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Device{}
	for rows.Next() {
		var count int
		d, err := scanDevice(rows, &count)
		if err != nil {
			return nil, err
		}
		d.CameraCount = count
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetForAccount loads a device only if it belongs to accountID.
func (m DeviceModel) GetForAccount(ctx context.Context, serial, accountID string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM hikconnect_devices d WHERE d.device_serial = $1 AND d.account_id = $2`

	d, err := scanDevice(m.DB.QueryRowContext(ctx, query, serial, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return d, err
}

func (m DeviceModel) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	res, err := m.DB.ExecContext(ctx, `DELETE FROM hikconnect_devices WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
