package client

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var tokenPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidToken はキーまたは値として使える文字列かどうかを返す
func ValidToken(s string) bool {
	return tokenPattern.MatchString(s)
}

// ParsePair は "KEY=VALUE" を分解する
func ParsePair(kv string) (string, string, error) {
	key, value, ok := strings.Cut(kv, "=")
	if !ok || !ValidToken(key) || !ValidToken(value) {
		return "", "", errors.Errorf("expected KEY=VALUE; got '%s'", kv)
	}
	return key, value, nil
}
