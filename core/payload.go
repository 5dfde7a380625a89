package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"

	utils "geetestapi/utils"
)

const (
	// Divisor the widget applies to the slide offset before submission.
	slideResponseDivisor = 1.0059466666666665
	slideResponseOffset  = 2.0
)

// orderedJSON is a JSON object that serializes its keys in insertion
// order. Setting an existing key replaces the value but keeps the
// original position, matching how the widget builds the w payload.
type orderedJSON struct {
	keys   []string
	values map[string]interface{}
}

func newOrderedJSON() *orderedJSON {
	return &orderedJSON{values: map[string]interface{}{}}
}

func (o *orderedJSON) Set(key string, value interface{}) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *orderedJSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		valueJSON, err := json.Marshal(o.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SolverResult is the per-category answer attached to the first submission.
type SolverResult interface {
	solverResult()
}

type SlideResult struct {
	Left float64
}

type GobangResult struct {
	Remove [2]int
	Fill   [2]int
}

type IconResult struct {
	Positions [][2]float64
}

type AiResult struct{}

func (SlideResult) solverResult()  {}
func (GobangResult) solverResult() {}
func (IconResult) solverResult()   {}
func (AiResult) solverResult()     {}

type emBlock struct {
	Cp int    `json:"cp"`
	Ek string `json:"ek"`
	Nt int    `json:"nt"`
	Ph int    `json:"ph"`
	Sc int    `json:"sc"`
	Si int    `json:"si"`
	Wd int    `json:"wd"`
}

type roeBlock struct {
	Auh string `json:"auh"`
	Aup string `json:"aup"`
	Cdc string `json:"cdc"`
	Egp string `json:"egp"`
	Res string `json:"res"`
	Rew string `json:"rew"`
	Sep string `json:"sep"`
	Snh string `json:"snh"`
}

func randomPasstime() int {
	return rand.Intn(600) + 600
}

// GenerateW assembles the signed payload for one verify attempt and seals
// it with the encryption mode the load response selected. The pow is
// searched fresh against the lot number passed in, which on retries is the
// server-updated one rather than the original load value.
func (task *GeetestTask) GenerateW(ctx context.Context, data *utils.LoadResponse, lotNumber string, result SolverResult) (string, error) {
	pow, err := GeneratePow(ctx, lotNumber, task.CaptchaID,
		data.PowDetail.HashFunc, data.PowDetail.Version, data.PowDetail.Bits, data.PowDetail.Datetime)
	if err != nil {
		return "", err
	}

	payload := newOrderedJSON()
	payload.Set("geetest", "captcha")
	payload.Set("lang", "zh")
	payload.Set("ep", "123")
	payload.Set("biht", "1426265548")
	payload.Set("device_id", task.Constants.DeviceID)
	payload.Set("lot_number", lotNumber)
	payload.Set("pow_msg", pow.PowMsg)
	payload.Set("pow_sign", pow.PowSign)
	payload.Set("em", emBlock{Cp: 0, Ek: "11", Nt: 0, Ph: 0, Sc: 0, Si: 0, Wd: 1})
	payload.Set("gee_guard", map[string]interface{}{
		"roe": roeBlock{Auh: "3", Aup: "3", Cdc: "3", Egp: "3", Res: "3", Rew: "3", Sep: "3", Snh: "3"},
	})

	aboKeys := make([]string, 0, len(task.Constants.Abo))
	for key := range task.Constants.Abo {
		aboKeys = append(aboKeys, key)
	}
	sort.Strings(aboKeys)
	for _, key := range aboKeys {
		payload.Set(key, task.Constants.Abo[key])
	}

	dict := task.lotParser.Dict(lotNumber)
	dictKeys := make([]string, 0, len(dict))
	for key := range dict {
		dictKeys = append(dictKeys, key)
	}
	sort.Strings(dictKeys)
	for _, key := range dictKeys {
		payload.Set(key, dict[key])
	}

	switch r := result.(type) {
	case SlideResult:
		payload.Set("passtime", randomPasstime())
		payload.Set("setLeft", r.Left)
		payload.Set("userresponse", r.Left/slideResponseDivisor+slideResponseOffset)
	case GobangResult:
		payload.Set("userresponse", [2][2]int{r.Remove, r.Fill})
	case IconResult:
		payload.Set("passtime", randomPasstime())
		payload.Set("userresponse", r.Positions)
	case AiResult:
		// pure risk evaluation, no user answer
	case nil:
		// retry rounds resubmit without a solver answer
	default:
		return "", fmt.Errorf("unknown solver result type %T", result)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %v", err)
	}

	return EncryptW(string(raw), data.Pt)
}
