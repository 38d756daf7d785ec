package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexibleID 兼容后端数字 ID 与本地字符串 ID（guest_xxx、u_xxx、ORD-xxx）
type FlexibleID string

// UnmarshalJSON 同时接受数字与字符串
func (id *FlexibleID) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

// String 返回字符串形式
func (id FlexibleID) String() string {
	return string(id)
}

// IsZero 是否为空
func (id FlexibleID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}
