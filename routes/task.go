package routes

import (
	"context"
	"fmt"
	"geetestapi/core"
	utils "geetestapi/utils"
	"log"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type Request struct {
	TaskID    string `json:"task_id"`
	Proxy     string `json:"proxy"`
	Preset    string `json:"preset"`
	CaptchaID string `json:"captcha_id"`
	RiskType  string `json:"risk_type"`
	UserInfo  string `json:"user_info"`
	Html      string `json:"html"`
}

var taskPool sync.Map

const (
	Service = "geetest"

	// Colors
	Reset        = "\033[0m"
	Purple       = "\033[35m"
	DarkGray     = "\033[90m"
	Neutral      = "\033[37m" // Light gray
	LabelColor   = "\033[97m" // White
	SuccessColor = "\033[32m" // Green
	ErrorColor   = "\033[31m" // Red
)

func GetPresets(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"presets": utils.Presets,
	})
}

// Main Solver
func CreateTaskRoute(c echo.Context) error {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v", r)
		}
	}()

	contentType := c.Request().Header.Get("Content-Type")
	if contentType != "application/json" {
		return c.JSON(http.StatusUnsupportedMediaType, map[string]interface{}{
			"success": false,
			"error":   "Unsupported Content-Type",
			"details": fmt.Sprintf("Expected 'Content-Type: application/json' but got '%s'", contentType),
		})
	}

	// Req
	var req Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid request"})
	}

	// Proxy validation
	if !core.UseLocalHost && (req.Proxy == "" || !strings.HasPrefix(req.Proxy, "http://") ||
		!strings.Contains(req.Proxy, "@") || !strings.Contains(req.Proxy, ":") ||
		strings.Contains(req.Proxy, "localhost") || strings.Contains(req.Proxy, "127.0.0.1") ||
		strings.Contains(req.Proxy, "0.0.0.0")) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "invalid or missing proxy",
		})
	}

	// Resolve target either by preset or by raw captcha_id + risk_type
	var preset utils.Preset
	if req.Preset != "" {
		found, err := utils.FindPresetByIDOrName(req.Preset)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid preset"})
		}
		preset = found
	} else if req.CaptchaID != "" {
		if req.RiskType == "" {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "risk_type is required with captcha_id"})
		}
		preset = utils.Preset{
			Name:        "custom",
			WebsiteName: "Custom",
			CaptchaID:   req.CaptchaID,
			RiskType:    req.RiskType,
			UserInfo:    req.UserInfo,
		}
	} else {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "preset or captcha_id wasn't provided"})
	}

	userInfo := req.UserInfo
	if userInfo == "" {
		userInfo = preset.UserInfo
	}

	// Script constants, cached across tasks
	constants, err := core.GetConstants(c.Request().Context())
	if err != nil {
		log.Printf("Failed to fetch script constants: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "failed to fetch captcha script constants"})
	}

	// Create Task
	task, err := core.NewGeetestTask(preset.CaptchaID, preset.RiskType, userInfo, req.Proxy, constants, preset)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "failed to create task"})
	}

	//  Store task in pool
	taskPool.Store(task.ID, task)

	// Solve Goroutine
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		start := time.Now()

		done := make(chan error)
		go func() {
			done <- task.Solve(ctx)
		}()

		var err error
		select {
		case err = <-done:
			if err != nil {
				errMsg := err.Error()

				// Check for proxy error
				if strings.Contains(errMsg, "proxy error") {
					task.Status = "error"
					task.ErrorReason = "bad proxy"
					return
				}

				if strings.Contains(errMsg, "max verify retries") {
					task.ErrorReason = "server kept asking to continue - likely flagged"
				} else if strings.Contains(errMsg, "verification failed") {
					task.ErrorReason = "captcha verification rejected"
				} else if strings.Contains(errMsg, "failed to download") {
					task.ErrorReason = "failed to fetch challenge image"
				} else if strings.Contains(errMsg, "407 Proxy") {
					task.ErrorReason = "407 proxy error - invalid proxy auth or you ran out of bandwidth"
				} else {
					task.ErrorReason = "internal error"
				}
				task.Status = "error"

			} else {
				task.Status = "completed"
			}

		case <-ctx.Done():
			task.Status = "error"
			task.ErrorReason = "timeout reached - proxy / geetest network issue"
			err = fmt.Errorf("timeout reached")
		}

		duration := time.Since(start)
		task.ProcessTime = duration.Seconds()

		// Log
		logTaskCompletion(preset, task, err == nil, duration)
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "task_id": task.ID})
}

func GetTaskRoute(c echo.Context) error {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v", r)
		}
	}()

	var req Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid request"})
	}

	// Retrieve task from taskPool
	val, exists := taskPool.Load(req.TaskID)
	if !exists {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid task_id"})
	}
	task := val.(*core.GeetestTask)

	// Task Response
	switch task.Status {
	case "completed":
		taskPool.Delete(req.TaskID)
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"status":  task.Status,
			"seccode": map[string]interface{}{
				"captcha_id":     task.CaptchaID,
				"lot_number":     task.SecCode.LotNumber,
				"pass_token":     task.SecCode.PassToken,
				"gen_time":       task.SecCode.GenTime,
				"captcha_output": task.SecCode.CaptchaOutput,
			},
			"time": math.Round(task.ProcessTime*100) / 100,
		})

	case "error":
		taskPool.Delete(req.TaskID)
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": false,
			"status":  task.Status,
			"error":   task.ErrorReason,
		})

	case "processing":
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": false,
			"status":  task.Status,
		})

	default:
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "unknown task status",
		})
	}
}

// ExtractCaptchaIDRoute pulls the embedded captcha id out of raw page HTML.
func ExtractCaptchaIDRoute(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid request"})
	}

	if req.Html == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "html wasn't provided"})
	}

	captchaID := utils.ExtractCaptchaID(req.Html)
	if captchaID == "" {
		return c.JSON(http.StatusOK, map[string]interface{}{"success": false, "error": "no captcha id found in page"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"captcha_id": captchaID,
	})
}

// Utilities
func logTaskCompletion(preset utils.Preset, task *core.GeetestTask, success bool, duration time.Duration) {
	// Lot Color
	lotColor := SuccessColor
	if !success {
		lotColor = ErrorColor
	}

	lotNumber := ""
	if task.SecCode != nil {
		lotNumber = task.SecCode.LotNumber
	}

	// All arguments
	websiteName := fmt.Sprintf("%s%s%s", Purple, preset.WebsiteName, Reset)
	riskLabel := fmt.Sprintf("%sRisk:%s", LabelColor, Reset)
	riskValue := fmt.Sprintf("%s%s%s", Neutral, task.RiskType, Reset)
	submitsLabel := fmt.Sprintf("%sSubmits:%s", LabelColor, Reset)
	submitsValue := fmt.Sprintf("%s%d%s", Neutral, task.Submits, Reset)
	lotLabel := fmt.Sprintf("%sLot:%s", LabelColor, Reset)
	lotValue := fmt.Sprintf("%s%s%s", lotColor, lotNumber, Reset)
	timeLabel := fmt.Sprintf("%sTime:%s", LabelColor, Reset)
	timeValue := fmt.Sprintf("%s%.2fs%s", Neutral, duration.Seconds(), Reset)
	separator := fmt.Sprintf("%s|%s", DarkGray, Reset)

	// Final message
	message := strings.Join([]string{
		websiteName,
		separator,
		riskLabel, riskValue,
		separator,
		submitsLabel, submitsValue,
		separator,
		timeLabel, timeValue,
		separator,
		lotLabel, lotValue,
	}, " ")

	log.Println(message)
}
