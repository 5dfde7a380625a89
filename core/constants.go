package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	utils "geetestapi/utils"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/dop251/goja"
	"github.com/google/uuid"
)

const (
	ScriptBaseURL = "https://static.geevisit.com"

	// Any registered key works for bootstrapping the script path; this is
	// the public demo-page one.
	bootstrapCaptchaID = "588a5218557e1eadf33d682a6958c31b"

	DefaultConstantsCache = "constants.json"
)

var (
	wordTablePattern = regexp.MustCompile(`decodeURI\("([^"]+)"\)`)
	xorKeyPattern    = regexp.MustCompile(`\}\}\}\("([^"]+)"\)\}`)
	lookupPattern    = regexp.MustCompile(`(_.{4})\((\d+?)\)`)
	aboPattern       = regexp.MustCompile(`\['_lib']=(\{[^}]+\}),`)
	mappingPtn       = regexp.MustCompile(`\['_abo']=(.+?)\}\(\)`)
	deviceIDPattern  = regexp.MustCompile(`\['options']\['deviceId']='([^']*)'`)
)

// Deobfuscator pulls the versioned constants (lot mapping, abo table,
// device id) out of the live gcaptcha4.js and caches them on disk keyed by
// the script version.
type Deobfuscator struct {
	CachePath string
	Client    tls_client.HttpClient
}

func NewDeobfuscator(cachePath string) (*Deobfuscator, error) {
	if cachePath == "" {
		cachePath = DefaultConstantsCache
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(30),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithRandomTLSExtensionOrder(),
	}
	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client")
	}

	return &Deobfuscator{CachePath: cachePath, Client: client}, nil
}

func (d *Deobfuscator) get(reqURL string) (string, error) {
	req, err := fhttp.NewRequest("GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header = browserHeaders("script")

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("proxy error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request returned status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %v", err)
	}
	return string(body), nil
}

// fetchStaticPath asks the load endpoint where the current script lives.
func (d *Deobfuscator) fetchStaticPath() (string, error) {
	callback := utils.RandomCallback()
	params := url.Values{
		"captcha_id":  {bootstrapCaptchaID},
		"challenge":   {uuid.New().String()},
		"client_type": {"web"},
		"risk_type":   {"ai"},
		"lang":        {"eng"},
		"callback":    {callback},
	}

	body, err := d.get(LoadURL + "?" + params.Encode())
	if err != nil {
		return "", err
	}

	var data utils.LoadResponse
	if err := utils.ParseJSONP(body, callback, &data); err != nil {
		return "", err
	}
	if data.StaticPath == "" {
		return "", fmt.Errorf("load response missing static_path")
	}
	return data.StaticPath, nil
}

// scriptVersion is the third path segment of the static path, e.g.
// "/v4/1.8.4/..." yields "1.8.4".
func scriptVersion(staticPath string) string {
	parts := strings.Split(staticPath, "/")
	if len(parts) > 3 {
		return parts[3]
	}
	return staticPath
}

func xorDecrypt(data, key string) string {
	var b strings.Builder
	b.Grow(len(data))
	for i := 0; i < len(data); i++ {
		b.WriteByte(data[i] ^ key[i%len(key)])
	}
	return b.String()
}

// deobfuscateScript reverses the script's string obfuscation: decode the
// percent-encoded word table, XOR it with the embedded key, split it into
// words and substitute every _xxxx(N) lookup call back to its literal.
func deobfuscateScript(script string) (string, error) {
	tableMatch := wordTablePattern.FindStringSubmatch(script)
	if tableMatch == nil {
		return "", fmt.Errorf("deobfuscation failed: word table not found")
	}
	keyMatch := xorKeyPattern.FindStringSubmatch(script)
	if keyMatch == nil {
		return "", fmt.Errorf("deobfuscation failed: xor key not found")
	}

	decoded, err := url.PathUnescape(tableMatch[1])
	if err != nil {
		return "", fmt.Errorf("deobfuscation failed: bad word table encoding: %v", err)
	}

	words := strings.Split(xorDecrypt(decoded, keyMatch[1]), "^")

	substituted := lookupPattern.ReplaceAllStringFunc(script, func(call string) string {
		m := lookupPattern.FindStringSubmatch(call)
		index, err := strconv.Atoi(m[2])
		if err != nil || index >= len(words) {
			return call
		}
		return "'" + words[index] + "'"
	})

	return substituted, nil
}

// evalAboLiteral runs the extracted object literal through a JS engine
// instead of parsing the quoting variants by hand.
func evalAboLiteral(literal string) (map[string]string, error) {
	vm := goja.New()
	value, err := vm.RunString("(" + literal + ")")
	if err != nil {
		return nil, fmt.Errorf("deobfuscation failed: bad abo literal: %v", err)
	}

	exported, ok := value.Export().(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("deobfuscation failed: abo literal is not an object")
	}

	abo := make(map[string]string, len(exported))
	for key, v := range exported {
		abo[key] = fmt.Sprintf("%v", v)
	}
	return abo, nil
}

func (d *Deobfuscator) fetchAndDeobfuscate(staticPath string) (*utils.CachedConstants, error) {
	script, err := d.get(ScriptBaseURL + staticPath + "/js/gcaptcha4.js")
	if err != nil {
		return nil, fmt.Errorf("failed to download captcha script: %v", err)
	}

	substituted, err := deobfuscateScript(script)
	if err != nil {
		return nil, err
	}

	aboMatch := aboPattern.FindStringSubmatch(substituted)
	if aboMatch == nil {
		return nil, fmt.Errorf("deobfuscation failed: abo table not found")
	}
	abo, err := evalAboLiteral(aboMatch[1])
	if err != nil {
		return nil, err
	}

	mappingMatch := mappingPtn.FindStringSubmatch(substituted)
	if mappingMatch == nil {
		return nil, fmt.Errorf("deobfuscation failed: lot mapping not found")
	}

	deviceID := ""
	if m := deviceIDPattern.FindStringSubmatch(substituted); m != nil {
		deviceID = m[1]
	}

	return &utils.CachedConstants{
		Version:   scriptVersion(staticPath),
		FetchedAt: time.Now(),
		Mapping:   mappingMatch[1],
		Abo:       abo,
		DeviceID:  deviceID,
	}, nil
}

func (d *Deobfuscator) readCache() *utils.CachedConstants {
	raw, err := os.ReadFile(d.CachePath)
	if err != nil {
		return nil
	}
	var cached utils.CachedConstants
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil
	}
	return &cached
}

func (d *Deobfuscator) writeCache(cached *utils.CachedConstants) {
	raw, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(d.CachePath, raw, 0644)
}

// Fetch returns current constants, refreshing the disk cache whenever the
// live script version moved past the cached one.
func (d *Deobfuscator) Fetch(ctx context.Context) (*utils.Constants, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	staticPath, err := d.fetchStaticPath()
	if err != nil {
		return nil, err
	}

	if cached := d.readCache(); cached != nil && cached.Version == scriptVersion(staticPath) {
		return cached.Constants(), nil
	}

	cached, err := d.fetchAndDeobfuscate(staticPath)
	if err != nil {
		return nil, err
	}
	d.writeCache(cached)

	return cached.Constants(), nil
}

var (
	constantsMu     sync.Mutex
	cachedConstants *utils.Constants
)

// GetConstants is the shared accessor the route layer uses; the first call
// does the network work, later calls reuse the result for the process
// lifetime.
func GetConstants(ctx context.Context) (*utils.Constants, error) {
	constantsMu.Lock()
	defer constantsMu.Unlock()

	if cachedConstants != nil {
		return cachedConstants, nil
	}

	deob, err := NewDeobfuscator(DefaultConstantsCache)
	if err != nil {
		return nil, err
	}

	constants, err := deob.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	cachedConstants = constants
	return constants, nil
}
