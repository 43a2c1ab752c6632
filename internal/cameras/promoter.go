package cameras

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jerichox/jerichox-security/internal/audit"
	"github.com/jerichox/jerichox-security/internal/data"
	"github.com/jerichox/jerichox-security/internal/hikconnect"
)

const CameraTypeHikConnect = "hikconnect"

type PromoteInput struct {
	DeviceSerial string
	AccountID    string
	ChannelNo    int // defaults to 1
	Name         string
	Location     string
	IsSelected   *bool // defaults to true
	UserID       string
}

type Service struct {
	db      data.TxBeginner
	auditor audit.Writer
	logger  *slog.Logger
}

func NewService(db data.TxBeginner, aud audit.Writer, logger *slog.Logger) *Service {
	if aud == nil {
		aud = audit.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, auditor: aud, logger: logger.With("component", "cameras")}
}

// Promote turns one channel of a synced device into a camera and, unless
// told otherwise, selects it for display for the requesting user. Either
// everything is written or nothing is.
func (s *Service) Promote(ctx context.Context, in PromoteInput) (*data.Camera, error) {
	if in.DeviceSerial == "" || in.AccountID == "" {
		return nil, fmt.Errorf("%w: Device serial and account ID are required", ErrValidation)
	}
	if in.ChannelNo == 0 {
		in.ChannelNo = 1
	}
	if in.ChannelNo < 1 {
		return nil, fmt.Errorf("%w: channel number must be at least 1", ErrValidation)
	}
	selected := in.IsSelected == nil || *in.IsSelected
	if selected && in.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required to select a camera for display", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dev, err := data.DeviceModel{DB: tx}.GetForAccount(ctx, in.DeviceSerial, in.AccountID)
	if errors.Is(err, data.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, stepErr("load_device", err)
	}

	cams := data.CameraModel{DB: tx}
	exists, err := cams.ExistsForChannel(ctx, in.DeviceSerial, in.ChannelNo)
	if err != nil {
		return nil, stepErr("check_existing", err)
	}
	if exists {
		return nil, ErrConflict
	}

	cam := buildCamera(dev, in)
	if err := cams.Create(ctx, cam); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, stepErr("insert_camera", err)
	}

	if selected {
		if err := (data.DisplaySelectionModel{DB: tx}).Select(ctx, cam.ID, in.UserID, 0); err != nil {
			return nil, stepErr("select_display", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, stepErr("commit", err)
	}

	s.logger.Info("camera promoted", "camera_id", cam.ID, "serial", in.DeviceSerial, "channel", in.ChannelNo)
	_ = s.auditor.WriteEvent(ctx, audit.AuditEvent{
		ActorUserID: in.UserID,
		Action:      "hikconnect.camera.promote",
		TargetType:  "camera",
		TargetID:    fmt.Sprint(cam.ID),
		Result:      audit.ResultSuccess,
		Metadata: audit.Meta(map[string]any{
			"device_serial": in.DeviceSerial,
			"account_id":    in.AccountID,
			"channel":       in.ChannelNo,
			"selected":      selected,
		}),
		CreatedAt: time.Now().UTC(),
	})
	return cam, nil
}

func buildCamera(dev *data.Device, in PromoteInput) *data.Camera {
	name := in.Name
	if name == "" {
		name = fmt.Sprintf("%s - Channel %d", dev.Name, in.ChannelNo)
	}

	status := "offline"
	if dev.Online() {
		status = "online"
	}

	serial, account, channel := in.DeviceSerial, in.AccountID, in.ChannelNo
	return &data.Camera{
		Name:         name,
		Type:         CameraTypeHikConnect,
		URL:          ChannelURL(dev.StreamURLs.RTSP, in.DeviceSerial, in.ChannelNo),
		Location:     in.Location,
		Manufacturer: dev.Manufacturer,
		Model:        dev.Model,
		Status:       status,
		Capabilities: append([]string{}, dev.SupportFunction...),
		HasPTZ:       dev.Capabilities.Has(hikconnect.CapPTZ),
		HasAudio:     dev.Capabilities.Has(hikconnect.CapAudio),
		DeviceSerial: &serial,
		AccountID:    &account,
		ChannelNo:    &channel,
	}
}

// ChannelURL rewrites a device's channel-1 RTSP URL for another channel.
func ChannelURL(rtsp, serial string, channel int) string {
	if rtsp == "" {
		return fmt.Sprintf("rtsp://device/%s/channel/%d", serial, channel)
	}
	return strings.Replace(rtsp, "/channel/1", fmt.Sprintf("/channel/%d", channel), 1)
}
