package core

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"net/url"
	"strings"
)

const (
	// Public key baked into gcaptcha4.js. Must match the vendor's byte for
	// byte or the server cannot recover the session key.
	rsaModulusHex = "00C1E3934D1614465B33053E7F48EE4EC87B14B95EF88947713D25EECBFF7E74C7977D02DC1D9451F79DD5D1C10C29ACB6A9B4D6FB7D0A0279B6719E1772565F09AF627715919221AEF91899CAE08C0D686D748B20A3603BE2318CA6BC2B59706592A9219D0BF05C9F65023A21D2330807252AE0066D59CEEFA5F2748EA80BAB81"
	rsaExponent   = 0x10001

	// The RSA block is always 128 bytes under the 1024-bit modulus, so the
	// server splits w at the last 256 hex chars. Nothing else marks the
	// boundary.
	rsaCipherHexLen = 256
)

var aesIV = []byte("0000000000000000")

// RandUID returns 16 hex chars built from four groups in 0x1000-0xffff,
// matching the widget's key/nonce generator. The value doubles as the AES
// session key, so it must come from the system CSPRNG.
func RandUID() (string, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(crand.Reader, buf); err != nil {
		return "", fmt.Errorf("random source unavailable: %v", err)
	}
	var b strings.Builder
	for i := 0; i < 4; i++ {
		n := int(binary.BigEndian.Uint16(buf[i*2:]))%(0xffff-0x1000+1) + 0x1000
		b.WriteString(fmt.Sprintf("%04x", n))
	}
	return b.String(), nil
}

// nonZeroRandomBytes fills s from the system CSPRNG, redrawing any zero
// bytes. PKCS#1 v1.5 reserves 0x00 as the padding terminator.
func nonZeroRandomBytes(s []byte) error {
	if _, err := io.ReadFull(crand.Reader, s); err != nil {
		return fmt.Errorf("random source unavailable: %v", err)
	}
	for i := range s {
		for s[i] == 0 {
			if _, err := io.ReadFull(crand.Reader, s[i:i+1]); err != nil {
				return fmt.Errorf("random source unavailable: %v", err)
			}
		}
	}
	return nil
}

func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func PKCS7Padding(data []byte, blockSize int) []byte {
	padding := blockSize - (len(data) % blockSize)
	padText := bytes.Repeat([]byte{byte(padding)}, padding)
	return append(data, padText...)
}

func encryptAesCbc(plainText, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	paddedText := PKCS7Padding(plainText, aes.BlockSize)
	mode := cipher.NewCBCEncrypter(block, aesIV)

	cipherText := make([]byte, len(paddedText))
	mode.CryptBlocks(cipherText, paddedText)

	return cipherText, nil
}

// encryptRsa performs raw PKCS#1 v1.5 encryption under the fixed vendor
// modulus, which ships as a bare hex constant rather than a PEM key.
func encryptRsa(data []byte) ([]byte, error) {
	modulus, ok := new(big.Int).SetString(rsaModulusHex, 16)
	if !ok {
		return nil, fmt.Errorf("invalid rsa modulus constant")
	}

	k := (modulus.BitLen() + 7) / 8
	if len(data) > k-11 {
		return nil, fmt.Errorf("rsa payload too long: %d bytes", len(data))
	}

	// EB = 00 02 PS 00 D
	em := make([]byte, k)
	em[1] = 0x02
	if err := nonZeroRandomBytes(em[2 : k-len(data)-1]); err != nil {
		return nil, err
	}
	copy(em[k-len(data):], data)

	m := new(big.Int).SetBytes(em)
	c := m.Exp(m, big.NewInt(rsaExponent), modulus)

	out := make([]byte, k)
	c.FillBytes(out)
	return out, nil
}

// EncryptW seals the serialized payload the way the widget does for the
// given pt mode. Mode "1" is the hybrid AES+RSA scheme; ""/"0" ship the
// payload percent-encoded in the clear.
func EncryptW(raw, pt string) (string, error) {
	switch pt {
	case "", "0":
		return percentEncode(raw), nil
	case "1":
		key, err := RandUID()
		if err != nil {
			return "", err
		}

		aesPart, err := encryptAesCbc([]byte(raw), []byte(key))
		if err != nil {
			return "", fmt.Errorf("aes encryption failed: %v", err)
		}

		rsaPart, err := encryptRsa([]byte(key))
		if err != nil {
			return "", fmt.Errorf("rsa encryption failed: %v", err)
		}

		rsaHex := hex.EncodeToString(rsaPart)
		if len(rsaHex) != rsaCipherHexLen {
			return "", fmt.Errorf("unexpected rsa cipher length: %d", len(rsaHex))
		}

		return hex.EncodeToString(aesPart) + rsaHex, nil
	case "2":
		return "", fmt.Errorf("unsupported encryption mode pt=2 (sm2)")
	default:
		return "", fmt.Errorf("unknown encryption mode pt=%q", pt)
	}
}
