package utils

import (
	"fmt"
	"log"
	"reflect"
)

func init() {
	for _, preset := range Presets {
		if err := validateStructFields(preset, "Preset '"+preset.Name+"'"); err != nil {
			log.Println(err)
		}
	}
}

var optionalFields = map[string]bool{
	"UserInfo": true,
}

func validateStructFields(data interface{}, context string) error {
	v := reflect.ValueOf(data)
	t := v.Type()

	if t.Kind() != reflect.Struct {
		return nil
	}

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if optionalFields[field.Name] {
			continue
		}

		if fieldValue.IsZero() {
			log.Printf("Warning: %s field '%s' is missing a value", context, field.Name)
		}
	}
	return nil
}

type Preset struct {
	Name        string `json:"name"`
	WebsiteName string `json:"website_name"`
	SiteURL     string `json:"site_url"`
	CaptchaID   string `json:"captcha_id"`
	RiskType    string `json:"risk_type"`
	UserInfo    string `json:"user_info"`
}

var Presets = []Preset{
	// GeeTest demo page keys
	{
		Name:        "demo_slide",
		WebsiteName: "GeeTest Demo",
		SiteURL:     "https://gt4.geetest.com",
		CaptchaID:   "54088bb07d2df3c46b79f80300b0abbe",
		RiskType:    "slide",
	},
	{
		Name:        "demo_ai",
		WebsiteName: "GeeTest Demo",
		SiteURL:     "https://gt4.geetest.com",
		CaptchaID:   "55c86e822ef5984cc0b03a3bbfd1a7c7",
		RiskType:    "ai",
	},
	{
		Name:        "demo_gobang",
		WebsiteName: "GeeTest Demo",
		SiteURL:     "https://gt4.geetest.com",
		CaptchaID:   "a6f5c649b6b5272e4ed9cea7ef269ffb",
		RiskType:    "gobang",
	},
	{
		Name:        "demo_icon",
		WebsiteName: "GeeTest Demo",
		SiteURL:     "https://gt4.geetest.com",
		CaptchaID:   "2ae3654c1e835a08538d82f695419106",
		RiskType:    "icon",
	},
}

func FindPresetByIDOrName(query string) (Preset, error) {
	for _, preset := range Presets {
		if preset.CaptchaID == query || preset.Name == query {
			return preset, nil
		}
	}
	return Preset{}, fmt.Errorf("preset not found for query: %s", query)
}
