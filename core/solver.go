package core

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	utils "geetestapi/utils"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/google/uuid"
	"github.com/oschwald/geoip2-golang"
)

const (
	LoadURL   = "https://gcaptcha4.geevisit.com/load"
	VerifyURL = "https://gcaptcha4.geevisit.com/verify"
	StaticURL = "https://static.geetest.com"

	// Verify submissions before giving up on a server that keeps
	// answering "continue".
	MaxRetries = 10

	RiskSlide  = "slide"
	RiskAi     = "ai"
	RiskGobang = "gobang"
	RiskIcon   = "icon"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"
)

var UseLocalHost bool
var geoDB *geoip2.Reader

func init() {
	log.SetFlags(0)

	// Args, parsed in main
	flag.BoolVar(&UseLocalHost, "use-local-host", false, "If set, skips proxy validation for local testing")

	// Optional, used to pick the load language from the proxy exit
	if db, err := geoip2.Open("GeoLite2-City.mmdb"); err == nil {
		geoDB = db
	}
}

type GeetestTask struct {
	// Manage
	Status string
	ID     string

	// Site Specific
	Preset    utils.Preset
	CaptchaID string
	RiskType  string
	UserInfo  string

	// Request Data
	Client    tls_client.HttpClient
	Challenge string
	Lang      string

	// Script constants
	Constants *utils.Constants
	lotParser *LotParser

	// API
	SecCode     *utils.SecCode
	Submits     int
	ProcessTime float64
	ErrorReason string
}

func NewGeetestTask(captchaID, riskType, userInfo, proxy string, constants *utils.Constants, preset utils.Preset) (*GeetestTask, error) {
	parser, err := NewLotParser(constants.Mapping)
	if err != nil {
		return nil, fmt.Errorf("bad script constants: %v", err)
	}

	// HTTP Client
	jar := tls_client.NewCookieJar()
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(30),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithProxyUrl(proxy),
		tls_client.WithCookieJar(jar),
		tls_client.WithRandomTLSExtensionOrder(),
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		log.Printf("Failed to create client: %v", err)
		return nil, fmt.Errorf("failed to create client")
	}

	task := &GeetestTask{
		ID:     strings.ReplaceAll(uuid.New().String(), "-", ""),
		Status: "processing",

		Preset:    preset,
		CaptchaID: captchaID,
		RiskType:  riskType,
		UserInfo:  userInfo,

		Client:    client,
		Challenge: uuid.New().String(),

		Constants: constants,
		lotParser: parser,
	}

	task.Lang = task.lookupLang()

	return task, nil
}

// lookupLang resolves the client's exit IP and maps its country to a
// widget language. Any failure falls back to "eng".
func (task *GeetestTask) lookupLang() string {
	if geoDB == nil {
		return "eng"
	}

	req, err := fhttp.NewRequest("GET", "https://ipinfo.io/json", nil)
	if err != nil {
		return "eng"
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := task.Client.Do(req)
	if err != nil {
		return "eng"
	}
	defer resp.Body.Close()

	var info struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "eng"
	}

	record, err := geoDB.City(net.ParseIP(info.IP))
	if err != nil {
		return "eng"
	}

	switch record.Country.IsoCode {
	case "CN", "TW", "HK", "MO":
		return "zho"
	case "JP":
		return "jpn"
	default:
		return "eng"
	}
}

func browserHeaders(dest string) fhttp.Header {
	return fhttp.Header{
		"user-agent":      {userAgent},
		"accept":          {`*/*`},
		"referer":         {`https://gt4.geetest.com/`},
		"sec-fetch-site":  {`cross-site`},
		"sec-fetch-mode":  {`no-cors`},
		"sec-fetch-dest":  {dest},
		"accept-encoding": {`gzip, deflate, br, zstd`},
		"accept-language": {`en-US,en;q=0.9`},
		fhttp.HeaderOrderKey: {
			"host",
			"user-agent",
			"accept",
			"referer",
			"sec-fetch-site",
			"sec-fetch-mode",
			"sec-fetch-dest",
			"accept-encoding",
			"accept-language",
		},
		fhttp.PHeaderOrderKey: {":method", ":authority", ":scheme", ":path"},
	}
}

func (task *GeetestTask) fetchJSONP(reqURL string, params url.Values, out interface{}) error {
	callback := utils.RandomCallback()
	params.Set("callback", callback)

	req, err := fhttp.NewRequest("GET", reqURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header = browserHeaders("script")

	resp, err := task.Client.Do(req)
	if err != nil {
		return fmt.Errorf("proxy error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha api returned status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}

	return utils.ParseJSONP(string(body), callback, out)
}

// Initial
func (task *GeetestTask) LoadCaptcha(ctx context.Context) (*utils.LoadResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := url.Values{
		"captcha_id":  {task.CaptchaID},
		"challenge":   {task.Challenge},
		"client_type": {"web"},
		"risk_type":   {task.RiskType},
		"lang":        {task.Lang},
	}
	if task.UserInfo != "" {
		params.Set("user_info", task.UserInfo)
	}

	var data utils.LoadResponse
	if err := task.fetchJSONP(LoadURL, params, &data); err != nil {
		return nil, err
	}

	if data.LotNumber == "" {
		return nil, fmt.Errorf("load response missing lot_number")
	}

	return &data, nil
}

func (task *GeetestTask) DownloadImage(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req, err := fhttp.NewRequest("GET", StaticURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header = browserHeaders("image")

	resp, err := task.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image request returned status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// SolveCaptcha produces the category answer attached to the first
// submission. Missing category data in the load response is fatal before
// anything is submitted.
func (task *GeetestTask) SolveCaptcha(ctx context.Context, data *utils.LoadResponse) (SolverResult, error) {
	switch task.RiskType {
	case RiskAi:
		return AiResult{}, nil

	case RiskSlide:
		if data.Bg == "" || data.Slice == "" {
			return nil, fmt.Errorf("load response missing slide images")
		}

		type download struct {
			img []byte
			err error
		}
		sliceCh := make(chan download, 1)
		go func() {
			img, err := task.DownloadImage(ctx, data.Slice)
			sliceCh <- download{img, err}
		}()

		bg, err := task.DownloadImage(ctx, data.Bg)
		if err != nil {
			return nil, fmt.Errorf("failed to download background: %v", err)
		}
		slice := <-sliceCh
		if slice.err != nil {
			return nil, fmt.Errorf("failed to download slice: %v", slice.err)
		}

		solver, err := NewSlideSolver(bg, slice.img)
		if err != nil {
			return nil, err
		}
		return SlideResult{Left: solver.FindPosition()}, nil

	case RiskGobang:
		if len(data.Ques) == 0 {
			return nil, fmt.Errorf("load response missing gobang board")
		}
		var board [][]int
		if err := json.Unmarshal(data.Ques, &board); err != nil {
			return nil, fmt.Errorf("bad gobang board: %v", err)
		}
		remove, fill, ok := FindGobangMove(board)
		if !ok {
			return nil, fmt.Errorf("no winning gobang move on board")
		}
		return GobangResult{Remove: remove, Fill: fill}, nil

	case RiskIcon:
		if data.Imgs == "" || len(data.Ques) == 0 {
			return nil, fmt.Errorf("load response missing icon data")
		}
		var questions []string
		if err := json.Unmarshal(data.Ques, &questions); err != nil {
			return nil, fmt.Errorf("bad icon question list: %v", err)
		}
		img, err := task.DownloadImage(ctx, data.Imgs)
		if err != nil {
			return nil, fmt.Errorf("failed to download icon image: %v", err)
		}
		positions, err := FindIconPositions(img, len(questions))
		if err != nil {
			return nil, err
		}
		return IconResult{Positions: positions}, nil

	default:
		return nil, fmt.Errorf("unsupported risk type: %s", task.RiskType)
	}
}

func (task *GeetestTask) SubmitCaptcha(ctx context.Context, lotNumber, payload, processToken, w string) (*utils.VerifyResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := url.Values{
		"captcha_id":       {task.CaptchaID},
		"client_type":      {"web"},
		"lot_number":       {lotNumber},
		"risk_type":        {task.RiskType},
		"payload":          {payload},
		"process_token":    {processToken},
		"payload_protocol": {"1"},
		"pt":               {"1"},
		"w":                {w},
	}

	var data utils.VerifyResponse
	if err := task.fetchJSONP(VerifyURL, params, &data); err != nil {
		return nil, err
	}
	task.Submits++

	return &data, nil
}

// submitState is the triple resubmitted every round. The verify response
// may rotate any subset of it; apply folds the rotated fields in and
// returns a fresh value so rounds never alias each other's state.
type submitState struct {
	lotNumber    string
	payload      string
	processToken string
}

func (s submitState) apply(resp *utils.VerifyResponse) submitState {
	next := s
	if v := resp.LotNumber.String(); v != "" {
		next.lotNumber = v
	}
	if v := resp.Payload.String(); v != "" {
		next.payload = v
	}
	if v := resp.ProcessToken.String(); v != "" {
		next.processToken = v
	}
	return next
}

func (task *GeetestTask) verifyLoop(ctx context.Context, data *utils.LoadResponse, result SolverResult) error {
	state := submitState{
		lotNumber:    data.LotNumber,
		payload:      data.Payload,
		processToken: data.ProcessToken,
	}

	for attempt := 0; attempt < MaxRetries; attempt++ {
		// The solver answer rides on the first attempt only; retries
		// resubmit the rotated triple with a fresh pow.
		var attemptResult SolverResult
		if attempt == 0 {
			attemptResult = result
		}

		w, err := task.GenerateW(ctx, data, state.lotNumber, attemptResult)
		if err != nil {
			return err
		}

		resp, err := task.SubmitCaptcha(ctx, state.lotNumber, state.payload, state.processToken, w)
		if err != nil {
			return err
		}

		if resp.SecCode != nil {
			task.SecCode = resp.SecCode
			return nil
		}

		if resp.Result == "continue" {
			state = state.apply(resp)
			continue
		}

		if resp.Result != "" {
			return fmt.Errorf("captcha verification failed: %s", resp.Result)
		}
		return fmt.Errorf("captcha verification failed: no seccode in response")
	}

	return fmt.Errorf("max verify retries exceeded after %d attempts", MaxRetries)
}

// Main
func (task *GeetestTask) Solve(ctx context.Context) error {
	defer handlePanic(task)
	start := time.Now()

	data, err := task.LoadCaptcha(ctx)
	if err != nil {
		return err
	}

	result, err := task.SolveCaptcha(ctx, data)
	if err != nil {
		return err
	}

	if err := task.verifyLoop(ctx, data, result); err != nil {
		return err
	}

	task.ProcessTime = time.Since(start).Seconds()
	task.Status = "completed"
	return nil
}

// ===== HANDLE PANIC ======
func logErrorToFile(taskID string, message string) {
	file, err := os.OpenFile("error_log.txt", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	logger := log.New(file, "", log.LstdFlags)

	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)

	logger.Printf("Task ID: %s\nError: %s\nStack Trace: %s\n", taskID, message, string(buf[:n]))
}

// Panic handler function
func handlePanic(task *GeetestTask) {
	if r := recover(); r != nil {
		logErrorToFile(task.ID, fmt.Sprintf("%v", r))

		task.Status = "error"
		task.ErrorReason = "unexpected error"
	}
}
