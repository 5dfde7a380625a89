package utils

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	captchaIDPattern     = regexp.MustCompile(`captcha_?[iI]d["']?\s*[:=]\s*["']([0-9a-f]{32})["']`)
	bareCaptchaIDPattern = regexp.MustCompile(`\b[0-9a-f]{32}\b`)
)

// ExtractCaptchaID walks the page markup and pulls the embedded captcha id
// out of inline script text. Returns "" when the page carries none.
func ExtractCaptchaID(input string) string {
	var scripts bytes.Buffer
	tokenizer := html.NewTokenizer(strings.NewReader(input))

	inScript := false
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return findCaptchaID(scripts.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			inScript = string(name) == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if inScript {
				scripts.Write(tokenizer.Text())
				scripts.WriteByte('\n')
			}
		}
	}
}

func findCaptchaID(text string) string {
	if m := captchaIDPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return bareCaptchaIDPattern.FindString(text)
}
