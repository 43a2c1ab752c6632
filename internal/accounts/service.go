package accounts

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jerichox/jerichox-security/internal/audit"
	"github.com/jerichox/jerichox-security/internal/data"
	"github.com/jerichox/jerichox-security/internal/hikconnect"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("account not found")
)

const (
	probeCacheSize = 256
	probeCacheTTL  = 60 * time.Second
)

// Cipher seals vendor secrets before they reach the database.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
}

type CreateInput struct {
	AccountName string
	AccessKey   string
	SecretKey   string
	Region      string
	APIURL      string
	ActorUserID string
}

type ProbeInput struct {
	AccessKey string
	SecretKey string
	Region    string
}

type Service struct {
	db        data.TxBeginner
	cipher    Cipher
	newClient hikconnect.Factory
	auditor   audit.Writer
	probes    *expirable.LRU[string, int]
	logger    *slog.Logger
}

func NewService(db data.TxBeginner, cipher Cipher, newClient hikconnect.Factory, aud audit.Writer, logger *slog.Logger) *Service {
	if aud == nil {
		aud = audit.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:        db,
		cipher:    cipher,
		newClient: newClient,
		auditor:   aud,
		probes:    expirable.NewLRU[string, int](probeCacheSize, nil, probeCacheTTL),
		logger:    logger.With("component", "accounts"),
	}
}

func (s *Service) List(ctx context.Context) ([]data.AccountSummary, error) {
	return data.AccountModel{DB: s.db}.List(ctx)
}

// MsgMissingFields is shown verbatim by the dashboard.
const MsgMissingFields = "Account name, access key, secret key, and region are required"

// Create validates and stores a new account. The vendor is probed first but
// a failed probe never blocks creation.
func (s *Service) Create(ctx context.Context, in CreateInput) (*data.Account, error) {
	in.Region = strings.ToLower(strings.TrimSpace(in.Region))
	if in.AccountName == "" || in.AccessKey == "" || in.SecretKey == "" || in.Region == "" {
		return nil, fmt.Errorf("%w: %s", ErrValidation, MsgMissingFields)
	}
	if !hikconnect.ValidRegion(in.Region) {
		return nil, fmt.Errorf("%w: unknown region %q", ErrValidation, in.Region)
	}

	creds := hikconnect.Credentials{AccessKey: in.AccessKey, SecretKey: in.SecretKey, Region: in.Region, BaseURL: in.APIURL}
	list, err := s.newClient(creds).ListDevices(ctx)
	switch {
	case err != nil:
		s.logger.Warn("credential probe failed", "error", err, "access_key", in.AccessKey)
	case list.Fallback:
		s.logger.Warn("credential probe could not reach vendor", "reason", list.FallbackReason, "access_key", in.AccessKey)
	default:
		s.logger.Info("credential probe ok", "devices", len(list.Devices))
	}

	id, err := NewAccountID()
	if err != nil {
		return nil, err
	}
	sealed, err := s.cipher.Encrypt(in.SecretKey)
	if err != nil {
		return nil, err
	}
	apiURL := in.APIURL
	if apiURL == "" {
		apiURL = hikconnect.ResolveBaseURL(in.Region)
	}

	acct := &data.Account{
		ID:          id,
		AccountName: in.AccountName,
		AccessKey:   in.AccessKey,
		SecretKey:   sealed,
		Region:      in.Region,
		APIURL:      apiURL,
	}
	if err := (data.AccountModel{DB: s.db}).Create(ctx, acct); err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}

	s.audit(ctx, in.ActorUserID, "hikconnect.account.create", acct.ID, audit.Meta(map[string]string{
		"account_name": acct.AccountName,
		"region":       acct.Region,
	}))
	acct.SecretKey = ""
	return acct, nil
}

// Delete removes the account with its devices and cameras in one
// transaction and returns the deleted account's name.
func (s *Service) Delete(ctx context.Context, id, actorUserID string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	cams, err := data.CameraModel{DB: tx}.DeleteByAccount(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete cameras: %w", err)
	}
	devs, err := data.DeviceModel{DB: tx}.DeleteByAccount(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete devices: %w", err)
	}
	name, err := data.AccountModel{DB: tx}.Delete(ctx, id)
	if errors.Is(err, data.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	s.audit(ctx, actorUserID, "hikconnect.account.delete", id, audit.Meta(map[string]any{
		"account_name":    name,
		"cameras_removed": cams,
		"devices_removed": devs,
	}))
	return name, nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool, actorUserID string) error {
	err := data.AccountModel{DB: s.db}.SetActive(ctx, id, active)
	if errors.Is(err, data.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	action := "hikconnect.account.deactivate"
	if active {
		action = "hikconnect.account.activate"
	}
	s.audit(ctx, actorUserID, action, id, nil)
	return nil
}

// TestCredentials probes the vendor without persisting anything and returns
// the number of devices visible to the credentials. Successful probes are
// cached briefly.
func (s *Service) TestCredentials(ctx context.Context, in ProbeInput) (int, error) {
	if in.AccessKey == "" || in.SecretKey == "" {
		return 0, fmt.Errorf("%w: Access key and secret key are required", ErrValidation)
	}
	if in.Region == "" {
		in.Region = string(hikconnect.RegionGlobal)
	}

	key := probeKey(in)
	if n, ok := s.probes.Get(key); ok {
		return n, nil
	}

	list, err := s.newClient(hikconnect.Credentials{
		AccessKey: in.AccessKey,
		SecretKey: in.SecretKey,
		Region:    in.Region,
	}).ListDevicesStrict(ctx)
	if err != nil {
		return 0, err
	}
	s.probes.Add(key, len(list.Devices))
	return len(list.Devices), nil
}

func (s *Service) audit(ctx context.Context, actor, action, target string, meta []byte) {
	_ = s.auditor.WriteEvent(ctx, audit.AuditEvent{
		ActorUserID: actor,
		Action:      action,
		TargetType:  "hikconnect_account",
		TargetID:    target,
		Result:      audit.ResultSuccess,
		Metadata:    meta,
		CreatedAt:   time.Now().UTC(),
	})
}

// NewAccountID returns "hik_" followed by 16 random hex characters.
func NewAccountID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return "hik_" + hex.EncodeToString(b[:]), nil
}

func probeKey(in ProbeInput) string {
	sum := sha256.Sum256([]byte(in.AccessKey + "\x00" + in.SecretKey + "\x00" + in.Region))
	return hex.EncodeToString(sum[:])
}

var _ data.TxBeginner = (*sql.DB)(nil)
