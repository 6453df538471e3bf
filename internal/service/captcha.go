package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/metrics"
)

const (
	CaptchaAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	CaptchaLength   = 6
)

type CaptchaResult int

const (
	CaptchaValid CaptchaResult = iota
	CaptchaInvalid
	// CaptchaSpecialNameFailed means a reserved name was used without the extended code.
	CaptchaSpecialNameFailed
)

func (r CaptchaResult) String() string {
	switch r {
	case CaptchaValid:
		return "valid"
	case CaptchaInvalid:
		return "invalid"
	case CaptchaSpecialNameFailed:
		return "special_name_failed"
	default:
		return "unknown"
	}
}

type CaptchaService interface {
	Generate() (string, error)
	Verify(sessionCode, submittedCode, submittedName string) CaptchaResult
	EncodedSpecialNames() []string
}

// Captcha issues and checks the text codes shown next to post forms.
type Captcha struct {
	encoded      []string
	specialNames []string
	random       io.Reader
}

// NewCaptcha decodes the base64 special names. Undecodable tokens are logged and skipped.
func NewCaptcha(encodedSpecialNames []string) *Captcha {
	c := &Captcha{random: rand.Reader}
	for _, token := range encodedSpecialNames {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		c.encoded = append(c.encoded, token)

		decoded, err := base64.StdEncoding.DecodeString(token)
		if err != nil || len(decoded) == 0 {
			logger.Log.Error("invalid base64 encoding for special name",
				"component", "captcha",
				"token", token)
			continue
		}
		c.specialNames = append(c.specialNames, string(decoded))
	}
	return c
}

// Generate returns a fresh code drawn uniformly from CaptchaAlphabet.
func (c *Captcha) Generate() (string, error) {
	buf := make([]byte, CaptchaLength)
	out := make([]byte, CaptchaLength)
	limit := byte(256 - 256%len(CaptchaAlphabet))

	for i := 0; i < CaptchaLength; {
		if _, err := io.ReadFull(c.random, buf); err != nil {
			return "", fmt.Errorf("generate captcha: %w", err)
		}
		for _, v := range buf {
			// rejection sampling keeps the distribution uniform
			if v >= limit {
				continue
			}
			out[i] = CaptchaAlphabet[int(v)%len(CaptchaAlphabet)]
			i++
			if i == CaptchaLength {
				break
			}
		}
	}
	return string(out), nil
}

// Verify compares the submission with the code stored in the session.
// Special names must submit code + "42" + name + "42069".
func (c *Captcha) Verify(sessionCode, submittedCode, submittedName string) CaptchaResult {
	if submittedCode == "" || sessionCode == "" {
		metrics.CaptchaFailures.WithLabelValues(CaptchaInvalid.String()).Inc()
		return CaptchaInvalid
	}

	if slices.Contains(c.specialNames, submittedName) {
		if strings.EqualFold(submittedCode, sessionCode+"42"+submittedName+"42069") {
			return CaptchaValid
		}
		metrics.CaptchaFailures.WithLabelValues(CaptchaSpecialNameFailed.String()).Inc()
		return CaptchaSpecialNameFailed
	}

	if strings.EqualFold(submittedCode, sessionCode) {
		return CaptchaValid
	}
	metrics.CaptchaFailures.WithLabelValues(CaptchaInvalid.String()).Inc()
	return CaptchaInvalid
}

// EncodedSpecialNames returns the configured tokens as given, for the client-side hint.
func (c *Captcha) EncodedSpecialNames() []string {
	if c.encoded == nil {
		return []string{}
	}
	return slices.Clone(c.encoded)
}
