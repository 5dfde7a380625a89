package utils

import (
	"encoding/json"
	"fmt"
	mrand "math/rand"
	"strings"
	"time"
)

// RandomCallback builds a JSONP callback name the way the web widget does,
// random digits glued to a millisecond timestamp.
func RandomCallback() string {
	return fmt.Sprintf("geetest_%d%d", mrand.Intn(9000)+1000, time.Now().UnixMilli())
}

type jsonpEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Msg    string          `json:"msg"`
}

// ParseJSONP strips the callback(...) wrapper, checks the status field and
// unmarshals the data object into out.
func ParseJSONP(body, callback string, out interface{}) error {
	prefix := callback + "("
	if !strings.HasPrefix(body, prefix) {
		return fmt.Errorf("malformed jsonp response: missing callback %q", callback)
	}
	inner := strings.TrimPrefix(body, prefix)
	inner = strings.TrimSuffix(strings.TrimSpace(inner), ")")

	var envelope jsonpEnvelope
	if err := json.Unmarshal([]byte(inner), &envelope); err != nil {
		return fmt.Errorf("malformed jsonp body: %v", err)
	}
	if envelope.Status != "success" {
		if envelope.Msg != "" {
			return fmt.Errorf("captcha api returned status %q: %s", envelope.Status, envelope.Msg)
		}
		return fmt.Errorf("captcha api returned status %q", envelope.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %v", err)
	}
	return nil
}
