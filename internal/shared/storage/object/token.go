package object

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

var (
	ErrTokenInvalid = errors.New("invalid download token")
	ErrTokenExpired = errors.New("download token expired")
)

// SignDownloadToken produces an HMAC token binding a storage key to an expiry.
func SignDownloadToken(secret, storageKey string, exp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(storageKey))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyDownloadToken checks a token against a storage key and expiry.
func VerifyDownloadToken(secret, storageKey, token string, exp int64, now time.Time) error {
	expected := SignDownloadToken(secret, storageKey, exp)
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return ErrTokenInvalid
	}
	if exp != 0 && now.UTC().Unix() > exp {
		return ErrTokenExpired
	}
	return nil
}
