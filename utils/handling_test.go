package utils

import "testing"

func TestExtractCaptchaID(t *testing.T) {
	page := `<html><head><script>
		initGeetest4({
			captcha_id: "54088bb07d2df3c46b79f80300b0abbe",
			product: "bind"
		}, handler);
	</script></head><body>hello</body></html>`

	if got := ExtractCaptchaID(page); got != "54088bb07d2df3c46b79f80300b0abbe" {
		t.Errorf("ExtractCaptchaID = %q", got)
	}
}

func TestExtractCaptchaIDBareHex(t *testing.T) {
	page := `<script>var id = "55c86e822ef5984cc0b03a3bbfd1a7c7";</script>`
	if got := ExtractCaptchaID(page); got != "55c86e822ef5984cc0b03a3bbfd1a7c7" {
		t.Errorf("ExtractCaptchaID = %q", got)
	}
}

func TestExtractCaptchaIDNone(t *testing.T) {
	if got := ExtractCaptchaID("<p>plain page with no widget</p>"); got != "" {
		t.Errorf("ExtractCaptchaID = %q, want empty", got)
	}
}

func TestFindPresetByIDOrName(t *testing.T) {
	byName, err := FindPresetByIDOrName("demo_slide")
	if err != nil {
		t.Fatalf("lookup by name failed: %v", err)
	}
	byID, err := FindPresetByIDOrName(byName.CaptchaID)
	if err != nil {
		t.Fatalf("lookup by id failed: %v", err)
	}
	if byID.Name != byName.Name {
		t.Errorf("lookups disagree: %q vs %q", byID.Name, byName.Name)
	}

	if _, err := FindPresetByIDOrName("nope"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestPresetRiskTypes(t *testing.T) {
	want := map[string]string{
		"demo_slide":  "slide",
		"demo_ai":     "ai",
		"demo_gobang": "gobang",
		"demo_icon":   "icon",
	}
	for name, riskType := range want {
		preset, err := FindPresetByIDOrName(name)
		if err != nil {
			t.Fatalf("missing preset %q: %v", name, err)
		}
		if preset.RiskType != riskType {
			t.Errorf("%s risk_type = %q, want %q", name, preset.RiskType, riskType)
		}
	}
}
