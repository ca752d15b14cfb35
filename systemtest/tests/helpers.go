package tests

import "github.com/EternisAI/silo-device/internal/credentials"

func recordFor(ssid, password, deviceID string) *credentials.Record {
	return credentials.NewRecord([]byte(ssid), []byte(password), []byte(deviceID), nil)
}
