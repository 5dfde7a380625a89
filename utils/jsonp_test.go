package utils

import (
	"strings"
	"testing"
)

func TestRandomCallback(t *testing.T) {
	cb := RandomCallback()
	if !strings.HasPrefix(cb, "geetest_") {
		t.Errorf("callback %q missing prefix", cb)
	}
	if len(cb) <= len("geetest_") {
		t.Errorf("callback %q carries no random part", cb)
	}
}

func TestParseJSONP(t *testing.T) {
	var data struct {
		LotNumber string `json:"lot_number"`
	}
	body := `geetest_123({"status":"success","data":{"lot_number":"abc"}})`
	if err := ParseJSONP(body, "geetest_123", &data); err != nil {
		t.Fatalf("ParseJSONP failed: %v", err)
	}
	if data.LotNumber != "abc" {
		t.Errorf("lot_number = %q", data.LotNumber)
	}
}

func TestParseJSONPWrongCallback(t *testing.T) {
	body := `other({"status":"success","data":{}})`
	if err := ParseJSONP(body, "geetest_123", nil); err == nil {
		t.Fatal("expected error for mismatched callback")
	}
}

func TestParseJSONPErrorStatus(t *testing.T) {
	body := `cb({"status":"fail","msg":"captcha id not registered"})`
	err := ParseJSONP(body, "cb", nil)
	if err == nil {
		t.Fatal("expected error for non-success status")
	}
	if !strings.Contains(err.Error(), "captcha id not registered") {
		t.Errorf("error %q should carry the server message", err)
	}
}

func TestParseJSONPMalformed(t *testing.T) {
	if err := ParseJSONP(`cb(not json)`, "cb", nil); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
