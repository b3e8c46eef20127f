package utils

import (
	"os"
	"runtime"

	"ume-client/models"
)

var hostname = os.Hostname

// deviceTypeCodes mirrors the mobile device type numbering.
var deviceTypeCodes = map[string]int{
	"Phone":   1,
	"Tablet":  2,
	"Desktop": 3,
	"TV":      4,
}

// DeviceInfo describes the machine the client runs on for the registration payload.
func DeviceInfo() models.DeviceInfo {
	name, err := hostname()
	if err != nil {
		name = "unknown"
	}

	deviceType := "Desktop"
	switch runtime.GOOS {
	case "android", "ios":
		deviceType = "Phone"
	}

	return models.DeviceInfo{
		DeviceName:     name,
		ModelName:      runtime.GOARCH,
		Brand:          brandFor(runtime.GOOS),
		OSName:         runtime.GOOS,
		OSVersion:      runtime.Version(),
		DeviceType:     deviceType,
		DeviceTypeCode: deviceTypeCodes[deviceType],
		IsDevice:       true,
	}
}

func brandFor(goos string) string {
	switch goos {
	case "darwin", "ios":
		return "Apple"
	case "android":
		return "Android"
	case "windows":
		return "Microsoft"
	default:
		return "Generic"
	}
}
