package data

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jerichox/jerichox-security/internal/hikconnect"
	"github.com/lib/pq"
)

type DisplaySelectionModel struct {
	DB DBTX
}

// Select marks a camera as shown for a user, updating any existing row.
func (m DisplaySelectionModel) Select(ctx context.Context, cameraID int64, userID string, priority int) error {
	query := `
		INSERT INTO camera_display_selection (camera_id, user_id, is_selected, display_priority)
		VALUES ($1, $2, true, $3)
		ON CONFLICT (camera_id, user_id) DO UPDATE SET
			is_selected = true,
			display_priority = EXCLUDED.display_priority`

	_, err := m.DB.ExecContext(ctx, query, cameraID, userID, priority)
	return err
}

// DisplayCamera is a camera joined with the viewer's selection and, for
// promoted cameras, the source account and device.
type DisplayCamera struct {
	Camera
	IsSelected         *bool                     `json:"is_selected"`
	LayoutPosition     *int                      `json:"layout_position"`
	DisplayPriority    *int                      `json:"display_priority"`
	AccountName        *string                   `json:"hikconnect_account_name"`
	Region             *string                   `json:"hikconnect_region"`
	DeviceName         *string                   `json:"hikconnect_device_name"`
	DeviceStatus       *int                      `json:"device_status"`
	DeviceCapabilities *hikconnect.CapabilitySet `json:"device_capabilities"`
	StreamURLs         *StreamURLs               `json:"stream_urls"`
}

func (m DisplaySelectionModel) ListForUser(ctx context.Context, userID string) ([]*DisplayCamera, error) {
	query := `
		SELECT c.id, c.name, c.type, c.url, c.location, c.zone, c.manufacturer, c.model, c.status,
		       c.capabilities, c.has_ptz, c.has_audio,
		       c.hikconnect_device_serial, c.hikconnect_account_id, c.hikconnect_channel_no, c.created_at,
		       cds.is_selected, cds.layout_position, cds.display_priority,
		       ha.account_name, ha.region,
		       hd.device_name, hd.status, hd.device_capabilities, hd.stream_urls
		FROM cameras c
		LEFT JOIN camera_display_selection cds ON c.id = cds.camera_id AND cds.user_id = $1
		LEFT JOIN hikconnect_accounts ha ON c.hikconnect_account_id = ha.id
		LEFT JOIN hikconnect_devices hd ON c.hikconnect_device_serial = hd.device_serial
		WHERE COALESCE(cds.is_selected, true) = true
		ORDER BY COALESCE(cds.display_priority, 0) DESC, c.created_at DESC`

	rows, err := m.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*DisplayCamera{}
	for rows.Next() {
		var dc DisplayCamera
		var (
			location, zone, manufacturer, model, status sql.NullString
			serial, accountID                           sql.NullString
			channel                                     sql.NullInt64
			selected                                    sql.NullBool
			layout, priority, devStatus                 sql.NullInt64
			accountName, region, deviceName             sql.NullString
			caps, urls                                  []byte
		)
		if err := rows.Scan(
			&dc.ID, &dc.Name, &dc.Type, &dc.URL, &location, &zone, &manufacturer, &model, &status,
			pq.Array(&dc.Capabilities), &dc.HasPTZ, &dc.HasAudio,
			&serial, &accountID, &channel, &dc.CreatedAt,
			&selected, &layout, &priority,
			&accountName, &region,
			&deviceName, &devStatus, &caps, &urls,
		); err != nil {
			return nil, err
		}

		dc.Location = location.String
		dc.Zone = nullString(zone)
		dc.Manufacturer = manufacturer.String
		dc.Model = model.String
		dc.Status = status.String
		dc.DeviceSerial = nullString(serial)
		dc.AccountID = nullString(accountID)
		dc.ChannelNo = nullInt(channel)
		if selected.Valid {
			dc.IsSelected = &selected.Bool
		}
		dc.LayoutPosition = nullInt(layout)
		dc.DisplayPriority = nullInt(priority)
		dc.AccountName = nullString(accountName)
		dc.Region = nullString(region)
		dc.DeviceName = nullString(deviceName)
		dc.DeviceStatus = nullInt(devStatus)

		if len(caps) > 0 {
			var set hikconnect.CapabilitySet
			if err := json.Unmarshal(caps, &set); err != nil {
				return nil, err
			}
			dc.DeviceCapabilities = &set
		}
		if len(urls) > 0 {
			var su StreamURLs
			if err := json.Unmarshal(urls, &su); err != nil {
				return nil, err
			}
			dc.StreamURLs = &su
		}
		out = append(out, &dc)
	}
	return out, rows.Err()
}
