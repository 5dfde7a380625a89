package core

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

type PowResult struct {
	PowMsg  string
	PowSign string
}

func hashHex(hashFunc, data string) (string, error) {
	switch hashFunc {
	case "md5":
		sum := md5.Sum([]byte(data))
		return hex.EncodeToString(sum[:]), nil
	case "sha1":
		sum := sha1.Sum([]byte(data))
		return hex.EncodeToString(sum[:]), nil
	case "sha256":
		sum := sha256.Sum256([]byte(data))
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", fmt.Errorf("unsupported pow hash function: %s", hashFunc)
	}
}

// powSignOK checks the leading-zero requirement: bits/4 full zero hex
// digits, and for a 1/2/3 bit remainder the next digit must stay under
// 8/4/2. Digit comparison works on the ASCII characters directly since
// hex.EncodeToString only emits 0-9a-f.
func powSignOK(sign string, prefixLen, remainder int) bool {
	if len(sign) < prefixLen+1 {
		return false
	}
	for i := 0; i < prefixLen; i++ {
		if sign[i] != '0' {
			return false
		}
	}
	switch remainder {
	case 1:
		return sign[prefixLen] <= '7'
	case 2:
		return sign[prefixLen] <= '3'
	case 3:
		return sign[prefixLen] <= '1'
	}
	return true
}

// GeneratePow searches for a nonce whose hash satisfies the difficulty the
// load response demands. There is no iteration cap; the caller bounds the
// search through ctx.
func GeneratePow(ctx context.Context, lotNumber, captchaID, hashFunc, version string, bits int, datetime string) (PowResult, error) {
	// Reject unknown hash names before burning any cycles
	if _, err := hashHex(hashFunc, ""); err != nil {
		return PowResult{}, err
	}

	base := version + "|" + strconv.Itoa(bits) + "|" + hashFunc + "|" + datetime + "|" + captchaID + "|" + lotNumber + "||"
	prefixLen := bits / 4
	remainder := bits % 4

	for i := 0; ; i++ {
		if i%4096 == 0 {
			select {
			case <-ctx.Done():
				return PowResult{}, fmt.Errorf("pow search cancelled: %v", ctx.Err())
			default:
			}
		}

		nonce, err := RandUID()
		if err != nil {
			return PowResult{}, err
		}
		msg := base + nonce
		sign, err := hashHex(hashFunc, msg)
		if err != nil {
			return PowResult{}, err
		}
		if powSignOK(sign, prefixLen, remainder) {
			return PowResult{PowMsg: msg, PowSign: sign}, nil
		}
	}
}
