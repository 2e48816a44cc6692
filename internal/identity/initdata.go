package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingUser means the init data carries no usable user object.
	ErrMissingUser = errors.New("init data has no user")
	// ErrMissingHash means the init data is unsigned.
	ErrMissingHash = errors.New("init data has no hash")
	// ErrBadSignature means the hash does not match the bot token.
	ErrBadSignature = errors.New("init data signature mismatch")
	// ErrExpired means auth_date is older than the accepted window.
	ErrExpired = errors.New("init data expired")
)

// InitData is the parsed Telegram WebApp launch payload.
type InitData struct {
	User     User
	AuthDate time.Time
	QueryID  string
	Hash     string
}

type webAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ParseInitData decodes the raw initData query string without checking its signature.
func ParseInitData(raw string) (InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return InitData{}, fmt.Errorf("parse init data: %w", err)
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return InitData{}, ErrMissingUser
	}
	var u webAppUser
	if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
		return InitData{}, fmt.Errorf("decode init data user: %w", err)
	}
	if u.ID == 0 {
		return InitData{}, ErrMissingUser
	}

	data := InitData{
		User: User{
			ID:        strconv.FormatInt(u.ID, 10),
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		},
		QueryID: values.Get("query_id"),
		Hash:    values.Get("hash"),
	}
	if v := values.Get("auth_date"); v != "" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return InitData{}, fmt.Errorf("invalid auth_date: %w", err)
		}
		data.AuthDate = time.Unix(secs, 0).UTC()
	}
	return data, nil
}

// VerifyInitData checks the initData hash against the bot token and rejects
// payloads older than maxAge. A zero maxAge disables the freshness check.
func VerifyInitData(raw, botToken string, maxAge time.Duration, now time.Time) error {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return fmt.Errorf("parse init data: %w", err)
	}
	received := values.Get("hash")
	if received == "" {
		return ErrMissingHash
	}

	expected := SignInitData(values, botToken)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(received))) {
		return ErrBadSignature
	}

	if maxAge > 0 {
		secs, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return ErrExpired
		}
		if now.Sub(time.Unix(secs, 0)) > maxAge {
			return ErrExpired
		}
	}
	return nil
}

// SignInitData computes the hex hash Telegram attaches to initData. The hash
// field itself is ignored if present.
func SignInitData(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
