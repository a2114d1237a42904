package resettoken

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Encode returns base64("<email>:<unix millis>").
//
// The token is a reversible encoding with no signature: anyone can mint one
// for any address. It only carries the email to the reset page; the user
// backend must not treat it as proof of ownership.
func Encode(email string, issuedAt time.Time) string {
	raw := email + ":" + strconv.FormatInt(issuedAt.UnixMilli(), 10)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Decode reverses Encode. This service only mints tokens; Decode is the
// reading side of the format, used by the reset page's backend to recover
// the email and issuance time from the link.
func Decode(token string) (email string, issuedAt time.Time, err error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("decode reset token: %w", err)
	}
	s := string(raw)
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return "", time.Time{}, fmt.Errorf("malformed reset token")
	}
	ms, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed reset token timestamp: %w", err)
	}
	return s[:i], time.UnixMilli(ms), nil
}

// Link builds "<base>?token=<token>&email=<email>" with both values query-escaped.
func Link(base, token, email string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token) + "&email=" + url.QueryEscape(email)
}
