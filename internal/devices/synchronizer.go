package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jerichox/jerichox-security/internal/audit"
	"github.com/jerichox/jerichox-security/internal/data"
	"github.com/jerichox/jerichox-security/internal/events"
	"github.com/jerichox/jerichox-security/internal/hikconnect"
)

var (
	ErrNotFound = errors.New("account not found or inactive")
	ErrSync     = errors.New("device sync failed")
)

const DefaultTimeout = 5 * time.Minute

// SyncError reports a failure after the vendor listing was obtained.
// Nothing from the failed run was committed.
type SyncError struct {
	AccountID string
	Attempted int
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync account %s: %d devices attempted: %v", e.AccountID, e.Attempted, e.Err)
}

func (e *SyncError) Unwrap() []error { return []error{ErrSync, e.Err} }

type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, evt events.SyncCompleted) error
}

type Recorder interface {
	ObserveSync(result string, fallback bool, d time.Duration)
	DevicesUpserted(n int)
	StreamURLFallback()
	ListingFallback()
}

type SyncedDevice struct {
	Serial string `json:"device_serial"`
	Name   string `json:"device_name"`
	Status int    `json:"status"`
}

type Result struct {
	Devices  []SyncedDevice `json:"devices"`
	Total    int            `json:"total"`
	Fallback bool           `json:"fallback"`
}

type Synchronizer struct {
	db        data.TxBeginner
	cipher    Decrypter
	newClient hikconnect.Factory
	locker    Locker
	publisher Publisher
	metrics   Recorder
	auditor   audit.Writer
	timeout   time.Duration
	logger    *slog.Logger
}

type Option func(*Synchronizer)

func WithPublisher(p Publisher) Option   { return func(s *Synchronizer) { s.publisher = p } }
func WithRecorder(r Recorder) Option     { return func(s *Synchronizer) { s.metrics = r } }
func WithAuditor(a audit.Writer) Option  { return func(s *Synchronizer) { s.auditor = a } }
func WithLogger(l *slog.Logger) Option   { return func(s *Synchronizer) { s.logger = l } }
func WithTimeout(d time.Duration) Option { return func(s *Synchronizer) { s.timeout = d } }

func NewSynchronizer(db data.TxBeginner, cipher Decrypter, newClient hikconnect.Factory, locker Locker, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		db:        db,
		cipher:    cipher,
		newClient: newClient,
		locker:    locker,
		publisher: events.Nop{},
		metrics:   nopRecorder{},
		auditor:   audit.Nop{},
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = NewKeyedMutex()
	}
	s.logger = s.logger.With("component", "devices")
	return s
}

// Sync pulls the account's devices from HikConnect and upserts them in one
// transaction. Concurrent syncs of the same account run one at a time.
func (s *Synchronizer) Sync(ctx context.Context, accountID string) (*Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()

	res, err := s.sync(ctx, accountID)

	outcome := audit.ResultSuccess
	fallback := res != nil && res.Fallback
	if err != nil {
		outcome = audit.ResultFailure
	}
	s.metrics.ObserveSync(outcome, fallback, time.Since(start))
	if !errors.Is(err, ErrNotFound) {
		s.audit(ctx, accountID, outcome, res, err)
	}
	return res, err
}

func (s *Synchronizer) sync(ctx context.Context, accountID string) (*Result, error) {
	acct, err := data.AccountModel{DB: s.db}.GetActive(ctx, accountID)
	if errors.Is(err, data.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", accountID, err)
	}

	secret, err := s.cipher.Decrypt(acct.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt secret for account %s: %w", accountID, err)
	}

	unlock, err := s.locker.Lock(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("lock account %s: %w", accountID, err)
	}
	defer unlock()

	client := s.newClient(hikconnect.Credentials{
		AccessKey: acct.AccessKey,
		SecretKey: secret,
		Region:    acct.Region,
		BaseURL:   acct.APIURL,
	})

	list, err := client.ListDevices(ctx)
	if err != nil {
		return nil, &SyncError{AccountID: accountID, Err: err}
	}
	s.logger.Info("devices listed", "account_id", accountID, "count", len(list.Devices))

	var res *Result
	if list.Fallback {
		// Placeholder devices are reported but never stored, and last_sync
		// keeps the time of the last real listing.
		s.metrics.ListingFallback()
		s.logger.Warn("vendor listing unavailable, nothing persisted",
			"account_id", accountID, "reason", list.FallbackReason, "devices", len(list.Devices))
		res = unpersisted(list.Devices)
	} else {
		res, err = s.persist(ctx, accountID, client, list.Devices)
		if err != nil {
			return nil, err
		}
	}
	res.Fallback = list.Fallback

	serials := make([]string, len(res.Devices))
	for i, d := range res.Devices {
		serials[i] = d.Serial
	}
	if err := s.publisher.Publish(ctx, events.SyncCompleted{
		AccountID:     accountID,
		Total:         res.Total,
		Fallback:      res.Fallback,
		DeviceSerials: serials,
		CompletedAt:   time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("sync event not published", "account_id", accountID, "error", err)
	}
	return res, nil
}

func (s *Synchronizer) persist(ctx context.Context, accountID string, client hikconnect.API, vendor []hikconnect.Device) (*Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &SyncError{AccountID: accountID, Err: err}
	}
	defer tx.Rollback()

	devices := data.DeviceModel{DB: tx}
	res := &Result{Devices: make([]SyncedDevice, 0, len(vendor))}

	for i, v := range vendor {
		row := toRow(v, accountID)
		row.StreamURLs = s.streamURLs(ctx, client, v.DeviceSerial)

		if err := devices.Upsert(ctx, row); err != nil {
			return nil, &SyncError{AccountID: accountID, Attempted: i + 1, Err: fmt.Errorf("upsert %s: %w", v.DeviceSerial, err)}
		}
		if row.AccountID != accountID {
			s.logger.Warn("device serial owned by another account, ownership kept",
				"serial", v.DeviceSerial, "account_id", accountID, "owner", row.AccountID)
		}
		res.Devices = append(res.Devices, SyncedDevice{Serial: row.Serial, Name: row.Name, Status: row.Status})
	}

	if err := (data.AccountModel{DB: tx}).TouchLastSync(ctx, accountID); err != nil {
		return nil, &SyncError{AccountID: accountID, Attempted: len(vendor), Err: fmt.Errorf("update last_sync: %w", err)}
	}
	if err := tx.Commit(); err != nil {
		return nil, &SyncError{AccountID: accountID, Attempted: len(vendor), Err: err}
	}

	res.Total = len(res.Devices)
	s.metrics.DevicesUpserted(res.Total)
	return res, nil
}

func unpersisted(vendor []hikconnect.Device) *Result {
	res := &Result{Devices: make([]SyncedDevice, 0, len(vendor))}
	for _, v := range vendor {
		res.Devices = append(res.Devices, SyncedDevice{Serial: v.DeviceSerial, Name: v.DeviceName, Status: v.Status})
	}
	res.Total = len(res.Devices)
	return res
}

// streamURLs never fails: vendor errors and blank fields fall back to
// placeholder URLs derived from the serial.
func (s *Synchronizer) streamURLs(ctx context.Context, client hikconnect.API, serial string) data.StreamURLs {
	fb := FallbackStreamURLs(serial)

	urls, err := client.GetStreamURLs(ctx, serial, 1)
	if err != nil {
		s.metrics.StreamURLFallback()
		s.logger.Warn("stream url lookup failed, using placeholders", "serial", serial, "error", err)
		return fb
	}

	out := data.StreamURLs{RTSP: urls.RTSPURL, HLS: urls.HLSURL, Snapshot: urls.SnapshotURL}
	if out.RTSP == "" {
		out.RTSP = fb.RTSP
	}
	if out.Snapshot == "" {
		out.Snapshot = fb.Snapshot
	}
	return out
}

func FallbackStreamURLs(serial string) data.StreamURLs {
	return data.StreamURLs{
		RTSP:     fmt.Sprintf("rtsp://device/%s/channel/1", serial),
		Snapshot: fmt.Sprintf("https://stream.hik-connect.com/devices/%s/snapshot", serial),
	}
}

func toRow(v hikconnect.Device, accountID string) *data.Device {
	channels := v.ChannelNum
	if channels <= 0 {
		channels = 1
	}
	manufacturer := v.Manufacturer
	if manufacturer == "" {
		manufacturer = "Hikvision"
	}
	functions := v.SupportFunction
	if functions == nil {
		functions = []string{}
	}
	return &data.Device{
		Serial:          v.DeviceSerial,
		Name:            v.DeviceName,
		Type:            v.DeviceType,
		Model:           v.DeviceModel,
		Version:         v.Version,
		Status:          v.Status,
		ChannelNumber:   channels,
		SupportFunction: functions,
		Manufacturer:    manufacturer,
		AccountID:       accountID,
		Capabilities:    hikconnect.ParseCapabilities(functions),
	}
}

// ListByAccount returns the account's stored devices ordered by name.
func (s *Synchronizer) ListByAccount(ctx context.Context, accountID string) ([]*data.Device, error) {
	return data.DeviceModel{DB: s.db}.ListByAccount(ctx, accountID)
}

// SyncSummary counts the outcome of a SyncAllActive run.
type SyncSummary struct {
	Succeeded int
	Failed    int
}

// SyncAllActive syncs every active account in turn. One account failing
// does not stop the others.
func (s *Synchronizer) SyncAllActive(ctx context.Context) (SyncSummary, error) {
	var sum SyncSummary
	ids, err := data.AccountModel{DB: s.db}.ListActiveIDs(ctx)
	if err != nil {
		return sum, fmt.Errorf("list active accounts: %w", err)
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		res, err := s.Sync(ctx, id)
		if err != nil {
			sum.Failed++
			s.logger.Error("scheduled sync failed", "account_id", id, "error", err)
			continue
		}
		sum.Succeeded++
		s.logger.Info("scheduled sync done", "account_id", id, "total", res.Total, "fallback", res.Fallback)
	}
	return sum, nil
}

func (s *Synchronizer) audit(ctx context.Context, accountID, outcome string, res *Result, err error) {
	meta := map[string]any{}
	if res != nil {
		meta["total"] = res.Total
		meta["fallback"] = res.Fallback
	}
	reason := ""
	if err != nil {
		meta["error"] = err.Error()
		reason = "sync_error"
	}
	_ = s.auditor.WriteEvent(context.WithoutCancel(ctx), audit.AuditEvent{
		Action:     "hikconnect.devices.sync",
		TargetType: "hikconnect_account",
		TargetID:   accountID,
		Result:     outcome,
		ReasonCode: reason,
		Metadata:   audit.Meta(meta),
		CreatedAt:  time.Now().UTC(),
	})
}

type nopRecorder struct{}

func (nopRecorder) ObserveSync(string, bool, time.Duration) {}
func (nopRecorder) DevicesUpserted(int)                     {}
func (nopRecorder) StreamURLFallback()                      {}
func (nopRecorder) ListingFallback()                        {}
