package hikconnect

import (
	"context"
	"errors"
	"fmt"
)

// Device is a device record as the vendor reports it.
type Device struct {
	DeviceSerial    string   `json:"deviceSerial"`
	DeviceName      string   `json:"deviceName"`
	DeviceType      string   `json:"deviceType"`
	DeviceModel     string   `json:"deviceModel"`
	Version         string   `json:"version"`
	Status          int      `json:"status"`
	ChannelNum      int      `json:"channelNum"`
	SupportFunction []string `json:"supportFunction"`
	Manufacturer    string   `json:"manufacturer"`
}

// DeviceList is the result of a device listing. Fallback is set when the
// vendor call failed and the devices are placeholders rather than real data.
type DeviceList struct {
	Devices        []Device `json:"devices"`
	Fallback       bool     `json:"-"`
	FallbackReason string   `json:"-"`
}

type StreamURLs struct {
	RTSPURL     string `json:"rtspUrl"`
	HLSURL      string `json:"hlsUrl"`
	SnapshotURL string `json:"snapshotUrl"`
}

type Credentials struct {
	AccessKey string
	SecretKey string
	Region    string
	// BaseURL overrides the region endpoint when non-empty.
	BaseURL string
}

// API is the subset of the vendor client the services depend on.
type API interface {
	ListDevices(ctx context.Context) (*DeviceList, error)
	ListDevicesStrict(ctx context.Context) (*DeviceList, error)
	GetDeviceDetail(ctx context.Context, serial string) (*Device, error)
	GetStreamURLs(ctx context.Context, serial string, channel int) (*StreamURLs, error)
}

// Factory builds a client for one set of credentials.
type Factory func(Credentials) API

var ErrVendorAPI = errors.New("hikconnect: vendor api error")

// APIError describes a non-2xx vendor response.
type APIError struct {
	Method     string
	URI        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hikconnect: %s %s: status %d", e.Method, e.URI, e.StatusCode)
}

func (e *APIError) Unwrap() error { return ErrVendorAPI }
