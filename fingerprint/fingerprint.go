package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// digestUserAgentLen bounds the user agent portion of the digest input so that
// trivial trailing differences between browser builds do not churn the digest.
const digestUserAgentLen = 64

// Optional wraps a client-reported field that may legitimately be missing.
// Browsers frequently cannot supply MAC addresses, SSIDs or coordinates, so an
// absent field must stay distinguishable from a present-but-empty one.
type Optional[T any] struct {
	value   T
	present bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the held value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// Present reports whether a value is held.
func (o Optional[T]) Present() bool {
	return o.present
}

// OrZero returns the held value, or the zero value when absent.
func (o Optional[T]) OrZero() T {
	return o.value
}

// MarshalJSON encodes an absent Optional as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as absent.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Optional[T]{value: v, present: true}
	return nil
}

// Coordinates is a client-reported geolocation fix.
type Coordinates struct {
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	AccuracyMeters float64 `json:"accuracyMeters"`
}

// Fingerprint is the canonical network/device snapshot used for proximity
// scoring. One instance is embedded in a session token at issuance, and one is
// captured fresh on every check-in attempt. Immutable once built.
type Fingerprint struct {
	IPAddress        string                `json:"ipAddress"`
	MACAddress       Optional[string]      `json:"macAddress"`
	WiFiSSID         Optional[string]      `json:"wifiSSID"`
	BluetoothDevices []string              `json:"bluetoothDevices"`
	Geolocation      Optional[Coordinates] `json:"geolocation"`
	UserAgent        string                `json:"userAgent"`
	Platform         string                `json:"platform"`
	CapturedAt       int64                 `json:"capturedAtEpochMs"`
	Digest           string                `json:"digest"`
}

// Snapshot carries the raw fields as reported by a client before
// normalisation. Empty strings mean the client could not supply the field.
type Snapshot struct {
	IPAddress        string       `json:"ipAddress"`
	MACAddress       string       `json:"macAddress,omitempty"`
	WiFiSSID         string       `json:"wifiSSID,omitempty"`
	BluetoothDevices []string     `json:"bluetoothDevices,omitempty"`
	Geolocation      *Coordinates `json:"geolocation,omitempty"`
	UserAgent        string       `json:"userAgent"`
	Platform         string       `json:"platform"`
	CapturedAt       int64        `json:"capturedAtEpochMs,omitempty"`
}

// Build normalises a raw client snapshot into a canonical Fingerprint and
// stamps its digest. Whitespace-only strings collapse to absent fields rather
// than empty ones.
func Build(raw Snapshot) Fingerprint {
	fp := Fingerprint{
		IPAddress:  strings.TrimSpace(raw.IPAddress),
		UserAgent:  strings.TrimSpace(raw.UserAgent),
		Platform:   strings.TrimSpace(raw.Platform),
		CapturedAt: raw.CapturedAt,
	}

	if mac := strings.TrimSpace(raw.MACAddress); mac != "" {
		fp.MACAddress = Some(mac)
	}
	if ssid := strings.TrimSpace(raw.WiFiSSID); ssid != "" {
		fp.WiFiSSID = Some(ssid)
	}
	for _, dev := range raw.BluetoothDevices {
		if dev = strings.TrimSpace(dev); dev != "" {
			fp.BluetoothDevices = append(fp.BluetoothDevices, dev)
		}
	}
	if raw.Geolocation != nil {
		fp.Geolocation = Some(*raw.Geolocation)
	}
	if fp.CapturedAt == 0 {
		fp.CapturedAt = time.Now().UnixMilli()
	}

	fp.Digest = digest(fp)
	return fp
}

// digest hashes the normalised identity subset {ip, mac, ssid, truncated UA,
// platform}. It is a logging/pre-check aid only; the matcher always scores the
// structured fields.
func digest(fp Fingerprint) string {
	ua := fp.UserAgent
	if len(ua) > digestUserAgentLen {
		ua = ua[:digestUserAgentLen]
	}
	parts := []string{
		fp.IPAddress,
		NormalizeMAC(fp.MACAddress.OrZero()),
		fp.WiFiSSID.OrZero(),
		ua,
		fp.Platform,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// NormalizeMAC lowercases a MAC address and strips separator characters so
// that "AA:BB:CC:DD:EE:FF" and "aa-bb-cc-dd-ee-ff" compare equal.
func NormalizeMAC(mac string) string {
	mac = strings.ToLower(strings.TrimSpace(mac))
	mac = strings.ReplaceAll(mac, ":", "")
	mac = strings.ReplaceAll(mac, "-", "")
	return strings.ReplaceAll(mac, ".", "")
}
