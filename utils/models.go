package utils

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexString accepts JSON values that arrive as either a string or an
// integer and normalizes them to a string. The verify endpoint is not
// consistent about the type of payload/process_token/lot_number.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// SecCode is the final proof artifact returned on successful verification.
type SecCode struct {
	CaptchaID     string `json:"captcha_id"`
	LotNumber     string `json:"lot_number"`
	PassToken     string `json:"pass_token"`
	GenTime       string `json:"gen_time"`
	CaptchaOutput string `json:"captcha_output"`
}

// PowDetail describes the proof-of-work the server demands for this load.
type PowDetail struct {
	HashFunc string `json:"hashfunc"`
	Version  string `json:"version"`
	Bits     int    `json:"bits"`
	Datetime string `json:"datetime"`
}

// LoadResponse is the data object of the /load JSONP envelope.
type LoadResponse struct {
	LotNumber    string    `json:"lot_number"`
	Payload      string    `json:"payload"`
	ProcessToken string    `json:"process_token"`
	Pt           string    `json:"pt"`
	PowDetail    PowDetail `json:"pow_detail"`
	StaticPath   string    `json:"static_path"`

	// Slide
	Slice string `json:"slice"`
	Bg    string `json:"bg"`

	// Gobang board / icon question list
	Ques json.RawMessage `json:"ques"`

	// Icon
	Imgs string `json:"imgs"`
}

// VerifyResponse is the data object of the /verify JSONP envelope. Any of
// the updated state fields may be absent; a "continue" result carries the
// subset that changed.
type VerifyResponse struct {
	SecCode         *SecCode   `json:"seccode"`
	Result          string     `json:"result"`
	Score           FlexString `json:"score"`
	Payload         FlexString `json:"payload"`
	ProcessToken    FlexString `json:"process_token"`
	PayloadProtocol FlexString `json:"payload_protocol"`
	LotNumber       FlexString `json:"lot_number"`
}

// Constants are the versioned values pulled out of the vendor script:
// the lot mapping pattern, the abo key/value table merged into every
// payload, and the device id (normally empty).
type Constants struct {
	Mapping  string
	Abo      map[string]string
	DeviceID string
}

// CachedConstants is the on-disk form of Constants, tagged with the script
// version so the cache can be invalidated when the vendor ships an update.
type CachedConstants struct {
	Version   string            `json:"version"`
	FetchedAt time.Time         `json:"fetched_at"`
	Mapping   string            `json:"mapping"`
	Abo       map[string]string `json:"abo"`
	DeviceID  string            `json:"device_id"`
}

func (c *CachedConstants) Constants() *Constants {
	return &Constants{
		Mapping:  c.Mapping,
		Abo:      c.Abo,
		DeviceID: c.DeviceID,
	}
}
