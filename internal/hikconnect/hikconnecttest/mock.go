// Package hikconnecttest provides a testify mock of the HikConnect client.
package hikconnecttest

import (
	"context"

	"github.com/jerichox/jerichox-security/internal/hikconnect"
	"github.com/stretchr/testify/mock"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListDevices(ctx context.Context) (*hikconnect.DeviceList, error) {
	args := m.Called(ctx)
	l, _ := args.Get(0).(*hikconnect.DeviceList)
	return l, args.Error(1)
}

func (m *MockAPI) ListDevicesStrict(ctx context.Context) (*hikconnect.DeviceList, error) {
	args := m.Called(ctx)
	l, _ := args.Get(0).(*hikconnect.DeviceList)
	return l, args.Error(1)
}

func (m *MockAPI) GetDeviceDetail(ctx context.Context, serial string) (*hikconnect.Device, error) {
	args := m.Called(ctx, serial)
	d, _ := args.Get(0).(*hikconnect.Device)
	return d, args.Error(1)
}

func (m *MockAPI) GetStreamURLs(ctx context.Context, serial string, channel int) (*hikconnect.StreamURLs, error) {
	args := m.Called(ctx, serial, channel)
	u, _ := args.Get(0).(*hikconnect.StreamURLs)
	return u, args.Error(1)
}

// Factory returns a hikconnect.Factory that always hands out m and records
// the credentials it was asked for.
func (m *MockAPI) Factory(seen *[]hikconnect.Credentials) hikconnect.Factory {
	return func(c hikconnect.Credentials) hikconnect.API {
		if seen != nil {
			*seen = append(*seen, c)
		}
		return m
	}
}

var _ hikconnect.API = (*MockAPI)(nil)
var _ hikconnect.API = (*hikconnect.Client)(nil)
