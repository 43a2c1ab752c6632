package accounts_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jerichox/jerichox-security/internal/accounts"
	"github.com/jerichox/jerichox-security/internal/hikconnect"
	"github.com/jerichox/jerichox-security/internal/hikconnect/hikconnecttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeCipher struct{}

func (fakeCipher) Encrypt(p string) (string, error) { return "sealed:" + strings.Repeat("x", len(p)), nil }

// notEqual matches any driver value other than s.
type notEqual string

func (n notEqual) Match(v driver.Value) bool {
	str, ok := v.(string)
	return ok && str != string(n)
}

func newService(t *testing.T, api *hikconnecttest.MockAPI) (*accounts.Service, sqlmock.Sqlmock, *[]hikconnect.Credentials) {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var seen []hikconnect.Credentials
	return accounts.NewService(db, fakeCipher{}, api.Factory(&seen), nil, nil), sqlMock, &seen
}

func TestCreate_Validation(t *testing.T) {
	svc, db, _ := newService(t, &hikconnecttest.MockAPI{})

	_, err := svc.Create(context.Background(), accounts.CreateInput{AccountName: "HQ", AccessKey: "AK", Region: "eu"})
	assert.ErrorIs(t, err, accounts.ErrValidation)
	assert.EqualError(t, err, "validation failed: Account name, access key, secret key, and region are required")

	_, err = svc.Create(context.Background(), accounts.CreateInput{AccountName: "HQ", AccessKey: "AK", SecretKey: "SK", Region: "mars"})
	assert.ErrorIs(t, err, accounts.ErrValidation)

	assert.NoError(t, db.ExpectationsWereMet())
}

func TestCreate_ProbeFailureDoesNotBlock(t *testing.T) {
	api := &hikconnecttest.MockAPI{}
	api.On("ListDevices", mock.Anything).Return(&hikconnect.DeviceList{Fallback: true, FallbackReason: "status 401"}, nil)
	svc, db, seen := newService(t, api)

	db.ExpectQuery("INSERT INTO hikconnect_accounts").
		WithArgs(sqlmock.AnyArg(), "HQ", "AK", notEqual("SK-plain"), "eu", "https://api-eu.hik-connect.com").
		WillReturnRows(sqlmock.NewRows([]string{"auth_type", "is_active", "created_at"}).AddRow("ak_sk", true, time.Now()))

	acct, err := svc.Create(context.Background(), accounts.CreateInput{
		AccountName: "HQ", AccessKey: "AK", SecretKey: "SK-plain", Region: "EU",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(acct.ID, "hik_"))
	assert.Len(t, acct.ID, 20)
	assert.Equal(t, "https://api-eu.hik-connect.com", acct.APIURL)
	assert.Equal(t, "ak_sk", acct.AuthType)
	assert.True(t, acct.IsActive)
	assert.Empty(t, acct.SecretKey)

	require.Len(t, *seen, 1)
	assert.Equal(t, "SK-plain", (*seen)[0].SecretKey)
	assert.NoError(t, db.ExpectationsWereMet())
	api.AssertExpectations(t)
}

func TestCreate_KeepsExplicitURL(t *testing.T) {
	api := &hikconnecttest.MockAPI{}
	api.On("ListDevices", mock.Anything).Return(nil, context.DeadlineExceeded)
	svc, db, _ := newService(t, api)

	db.ExpectQuery("INSERT INTO hikconnect_accounts").
		WithArgs(sqlmock.AnyArg(), "HQ", "AK", sqlmock.AnyArg(), "us", "https://proxy.example").
		WillReturnRows(sqlmock.NewRows([]string{"auth_type", "is_active", "created_at"}).AddRow("ak_sk", true, time.Now()))

	acct, err := svc.Create(context.Background(), accounts.CreateInput{
		AccountName: "HQ", AccessKey: "AK", SecretKey: "SK", Region: "us", APIURL: "https://proxy.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.example", acct.APIURL)
}

func TestDelete_Cascades(t *testing.T) {
	svc, db, _ := newService(t, &hikconnecttest.MockAPI{})

	db.ExpectBegin()
	db.ExpectExec("DELETE FROM cameras WHERE hikconnect_account_id").WithArgs("hik_1").WillReturnResult(sqlmock.NewResult(0, 2))
	db.ExpectExec("DELETE FROM hikconnect_devices WHERE account_id").WithArgs("hik_1").WillReturnResult(sqlmock.NewResult(0, 3))
	db.ExpectQuery("DELETE FROM hikconnect_accounts").WithArgs("hik_1").
		WillReturnRows(sqlmock.NewRows([]string{"account_name"}).AddRow("HQ"))
	db.ExpectCommit()

	name, err := svc.Delete(context.Background(), "hik_1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "HQ", name)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestDelete_NotFoundRollsBack(t *testing.T) {
	svc, db, _ := newService(t, &hikconnecttest.MockAPI{})

	db.ExpectBegin()
	db.ExpectExec("DELETE FROM cameras").WillReturnResult(sqlmock.NewResult(0, 0))
	db.ExpectExec("DELETE FROM hikconnect_devices").WillReturnResult(sqlmock.NewResult(0, 0))
	db.ExpectQuery("DELETE FROM hikconnect_accounts").WillReturnRows(sqlmock.NewRows([]string{"account_name"}))
	db.ExpectRollback()

	_, err := svc.Delete(context.Background(), "hik_missing", "user-1")
	assert.ErrorIs(t, err, accounts.ErrNotFound)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestSetActive(t *testing.T) {
	svc, db, _ := newService(t, &hikconnecttest.MockAPI{})

	db.ExpectExec("UPDATE hikconnect_accounts SET is_active").WithArgs("hik_1", false).WillReturnResult(sqlmock.NewResult(0, 1))
	db.ExpectExec("UPDATE hikconnect_accounts SET is_active").WithArgs("hik_2", true).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, svc.SetActive(context.Background(), "hik_1", false, "user-1"))
	assert.ErrorIs(t, svc.SetActive(context.Background(), "hik_2", true, "user-1"), accounts.ErrNotFound)
}

func TestTestCredentials(t *testing.T) {
	api := &hikconnecttest.MockAPI{}
	api.On("ListDevicesStrict", mock.Anything).
		Return(&hikconnect.DeviceList{Devices: hikconnect.MockDevices()}, nil).Once()
	svc, _, seen := newService(t, api)

	in := accounts.ProbeInput{AccessKey: "AK", SecretKey: "SK"}
	n, err := svc.TestCredentials(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "global", (*seen)[0].Region)

	// Served from cache.
	n, err = svc.TestCredentials(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	api.AssertNumberOfCalls(t, "ListDevicesStrict", 1)
}

func TestTestCredentials_Errors(t *testing.T) {
	api := &hikconnecttest.MockAPI{}
	vendorErr := &hikconnect.APIError{Method: "GET", URI: "/v1/devices", StatusCode: 401}
	api.On("ListDevicesStrict", mock.Anything).Return(nil, vendorErr)
	svc, _, _ := newService(t, api)

	_, err := svc.TestCredentials(context.Background(), accounts.ProbeInput{AccessKey: "AK"})
	assert.ErrorIs(t, err, accounts.ErrValidation)

	_, err = svc.TestCredentials(context.Background(), accounts.ProbeInput{AccessKey: "AK", SecretKey: "bad"})
	assert.True(t, errors.Is(err, hikconnect.ErrVendorAPI))

	// Failures are not cached.
	_, _ = svc.TestCredentials(context.Background(), accounts.ProbeInput{AccessKey: "AK", SecretKey: "bad"})
	api.AssertNumberOfCalls(t, "ListDevicesStrict", 2)
}
