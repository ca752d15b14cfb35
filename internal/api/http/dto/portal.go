package dto

import "github.com/EternisAI/silo-device/internal/secret"

// ProvisionForm is the decoded body of POST /provision. Values are kept as
// byte slices so they can be erased once copied into a credential record.
type ProvisionForm struct {
	SSID     []byte `form:"ssid" validate:"min=1,max=32"`
	Password []byte `form:"password" validate:"min=1,max=64"`
	DeviceID []byte `form:"device_id" validate:"min=1,max=32"`
	APIKey   []byte `form:"api_key" validate:"max=128"`
}

// Wipe zeroes every field.
func (f *ProvisionForm) Wipe() {
	secret.Wipe(f.SSID)
	secret.Wipe(f.Password)
	secret.Wipe(f.DeviceID)
	secret.Wipe(f.APIKey)
	f.SSID, f.Password, f.DeviceID, f.APIKey = nil, nil, nil, nil
}
