package data

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// RedactedSecret replaces the secret key in every account listing.
const RedactedSecret = "***ENCRYPTED***"

type Account struct {
	ID          string     `json:"id"`
	AccountName string     `json:"account_name"`
	AccessKey   string     `json:"access_key"`
	SecretKey   string     `json:"-"` // hex ciphertext
	Region      string     `json:"region"`
	APIURL      string     `json:"api_url"`
	AuthType    string     `json:"auth_type"`
	IsActive    bool       `json:"is_active"`
	LastSync    *time.Time `json:"last_sync"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AccountSummary is the listing view of an account.
type AccountSummary struct {
	Account
	RedactedSecret string `json:"secret_key"`
	DeviceCount    int    `json:"device_count"`
}

type AccountModel struct {
	DB DBTX
}

func (m AccountModel) List(ctx context.Context) ([]AccountSummary, error) {
	query := `
		SELECT a.id, a.account_name, a.access_key, a.region, a.api_url, a.auth_type,
		       a.is_active, a.last_sync, a.created_at,
		       (SELECT COUNT(*) FROM hikconnect_devices d WHERE d.account_id = a.id) AS device_count
		FROM hikconnect_accounts a
		ORDER BY a.created_at DESC`

	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []AccountSummary{}
	for rows.Next() {
		var s AccountSummary
		var lastSync sql.NullTime
		if err := rows.Scan(
			&s.ID, &s.AccountName, &s.AccessKey, &s.Region, &s.APIURL, &s.AuthType,
			&s.IsActive, &lastSync, &s.CreatedAt, &s.DeviceCount,
		); err != nil {
			return nil, err
		}
		if lastSync.Valid {
			s.LastSync = &lastSync.Time
		}
		s.RedactedSecret = RedactedSecret
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts an active ak_sk account. a.SecretKey must already be encrypted.
func (m AccountModel) Create(ctx context.Context, a *Account) error {
	query := `
		INSERT INTO hikconnect_accounts (id, account_name, access_key, secret_key, region, api_url, auth_type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, 'ak_sk', true)
		RETURNING auth_type, is_active, created_at`

	err := m.DB.QueryRowContext(ctx, query, a.ID, a.AccountName, a.AccessKey, a.SecretKey, a.Region, a.APIURL).
		Scan(&a.AuthType, &a.IsActive, &a.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetActive loads an account including its encrypted secret. Inactive
// accounts are reported as not found.
func (m AccountModel) GetActive(ctx context.Context, id string) (*Account, error) {
	query := `
		SELECT id, account_name, access_key, secret_key, region, api_url, auth_type, is_active, last_sync, created_at
		FROM hikconnect_accounts
		WHERE id = $1 AND is_active = true`

	var a Account
	var lastSync sql.NullTime
	err := m.DB.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.AccountName, &a.AccessKey, &a.SecretKey, &a.Region, &a.APIURL,
		&a.AuthType, &a.IsActive, &lastSync, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastSync.Valid {
		a.LastSync = &lastSync.Time
	}
	return &a, nil
}

func (m AccountModel) ListActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := m.DB.QueryContext(ctx, `SELECT id FROM hikconnect_accounts WHERE is_active = true ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes the account row and returns its name. Dependent devices and
// cameras must be removed first in the same transaction.
func (m AccountModel) Delete(ctx context.Context, id string) (string, error) {
	var name string
	err := m.DB.QueryRowContext(ctx, `DELETE FROM hikconnect_accounts WHERE id = $1 RETURNING account_name`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRecordNotFound
	}
	return name, err
}

func (m AccountModel) SetActive(ctx context.Context, id string, active bool) error {
	res, err := m.DB.ExecContext(ctx, `UPDATE hikconnect_accounts SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (m AccountModel) TouchLastSync(ctx context.Context, id string) error {
	res, err := m.DB.ExecContext(ctx, `UPDATE hikconnect_accounts SET last_sync = CURRENT_TIMESTAMP WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}
