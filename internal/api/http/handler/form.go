package handler

import (
	"bytes"

	"github.com/EternisAI/silo-device/internal/api/http/dto"
	"github.com/EternisAI/silo-device/internal/secret"
)

// DecodeForm parses an application/x-www-form-urlencoded body. Pairs are
// separated by '&', pairs without '=' are skipped and the last occurrence of
// a key wins. Each decoded value is a fresh slice; superseded duplicates are
// wiped. body itself is left untouched and remains the caller's to wipe.
func DecodeForm(body []byte) map[string][]byte {
	values := make(map[string][]byte)
	for len(body) > 0 {
		var pair []byte
		if i := bytes.IndexByte(body, '&'); i >= 0 {
			pair, body = body[:i], body[i+1:]
		} else {
			pair, body = body, nil
		}

		key, value, ok := bytes.Cut(pair, []byte{'='})
		if !ok {
			continue
		}

		k := string(unescape(key))
		if old, exists := values[k]; exists {
			secret.Wipe(old)
		}
		values[k] = unescape(value)
	}
	return values
}

// unescape turns '+' into a space and "%XX" into the byte it names. A '%'
// that is not followed by two hex digits is dropped together with whatever
// characters it swallowed.
func unescape(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '+':
			out = append(out, ' ')
		case '%':
			end := min(i+3, len(s))
			if end-i == 3 {
				hi, okHi := fromHex(s[i+1])
				lo, okLo := fromHex(s[i+2])
				if okHi && okLo {
					out = append(out, hi<<4|lo)
				}
			}
			i = end - 1
		default:
			out = append(out, c)
		}
	}
	return out
}

func fromHex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// provisionForm moves the known fields out of values and wipes the rest.
func provisionForm(values map[string][]byte) dto.ProvisionForm {
	form := dto.ProvisionForm{
		SSID:     values["ssid"],
		Password: values["password"],
		DeviceID: values["device_id"],
		APIKey:   values["api_key"],
	}
	for k, v := range values {
		switch k {
		case "ssid", "password", "device_id", "api_key":
		default:
			secret.Wipe(v)
		}
		delete(values, k)
	}
	return form
}
