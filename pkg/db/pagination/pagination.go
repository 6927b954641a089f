package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 200
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

// Pagination is embedded into list query bindings.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// PageInfo is embedded into list responses.
type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
}

// Normalize clamps the page size into the allowed range.
func (p Pagination) Normalize() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// EncodeToken builds an opaque cursor from the last seen row ID.
func EncodeToken(lastID snowflake.ID) string {
	if lastID == 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte("id:" + lastID.String()))
}

// DecodeToken parses a cursor produced by EncodeToken.
func DecodeToken(token string) (snowflake.ID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, ErrInvalidPageToken
	}
	value, ok := strings.CutPrefix(string(raw), "id:")
	if !ok {
		return 0, ErrInvalidPageToken
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, ErrInvalidPageToken
	}
	return snowflake.ParseInt64(parsed), nil
}
