package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	internal_errors "github.com/itchan-dev/schan/internal/errors"
	"github.com/itchan-dev/schan/internal/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}

// WriteErrorAndStatusCode writes {"error": ...} with the status carried by err.
// Errors without a status become 500 and their text is not exposed.
func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	status := internal_errors.StatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError && !isStatusError(err) {
		logger.Log.Error("internal error", "error", err)
		message = "Internal Server Error"
	}
	WriteJSON(w, status, errorResponse{Error: message})
}

func isStatusError(err error) bool {
	var e *internal_errors.ErrorWithStatusCode
	return errors.As(err, &e)
}

// GetIP resolves the client address. Proxy headers are only honored with trustProxy:
// X-Real-IP first, then the last X-Forwarded-For hop, the one our proxy appended.
// Earlier hops are whatever the client sent.
func GetIP(r *http.Request, trustProxy bool) (string, error) {
	if trustProxy {
		ip := strings.TrimSpace(r.Header.Get("X-REAL-IP"))
		if net.ParseIP(ip) != nil {
			return ip, nil
		}

		if ips := r.Header.Get("X-FORWARDED-FOR"); ips != "" {
			splitIps := strings.Split(ips, ",")
			ip := strings.TrimSpace(splitIps[len(splitIps)-1])
			if net.ParseIP(ip) != nil {
				return ip, nil
			}
		}
	}

	//Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", err
	}
	if net.ParseIP(ip) != nil {
		return ip, nil
	}
	return "", fmt.Errorf("no valid ip found")
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("invalid json body", "error", err)
		return internal_errors.Validation("Body is invalid json")
	}
	if err := validate.Struct(body); err != nil {
		logger.Log.Debug("body validation failed", "error", err)
		return internal_errors.Validation("Required fields missing")
	}
	return nil
}
