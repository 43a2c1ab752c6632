package hikconnect

type FallbackMode string

const (
	// FallbackMock substitutes two development devices.
	FallbackMock FallbackMode = "mock"
	// FallbackEmpty substitutes an empty list.
	FallbackEmpty FallbackMode = "empty"
)

func ParseFallbackMode(s string) FallbackMode {
	if FallbackMode(s) == FallbackEmpty {
		return FallbackEmpty
	}
	return FallbackMock
}

func fallbackList(mode FallbackMode, reason string) *DeviceList {
	list := &DeviceList{Devices: []Device{}, Fallback: true, FallbackReason: reason}
	if mode == FallbackMock {
		list.Devices = MockDevices()
	}
	return list
}

// MockDevices are the placeholder devices served while the vendor API is
// unreachable.
func MockDevices() []Device {
	return []Device{
		{
			DeviceSerial:    "DS2CD2085FWD001",
			DeviceName:      "Front Entrance Camera",
			DeviceType:      "IPC",
			DeviceModel:     "DS-2CD2085FWD-I",
			Version:         "V5.7.3",
			Status:          1,
			ChannelNum:      1,
			SupportFunction: []string{"PTZ", "Audio", "Motion Detection"},
			Manufacturer:    "Hikvision",
		},
		{
			DeviceSerial:    "DS7608NIK2001",
			DeviceName:      "Main Building NVR",
			DeviceType:      "NVR",
			DeviceModel:     "DS-7608NI-K2",
			Version:         "V4.61.025",
			Status:          1,
			ChannelNum:      8,
			SupportFunction: []string{"Recording", "Playback", "Remote Access"},
			Manufacturer:    "Hikvision",
		},
	}
}
