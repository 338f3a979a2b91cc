package debug

import (
	"fmt"
	"strings"
)

func getStringValue(msg interface{}) string {
	switch m := msg.(type) {
	case string:
		return m
	case func() string:
		return m()
	case fmt.Stringer:
		return m.String()
	default:
		return fmt.Sprintf("%v", m)
	}
}

// HexPayload renders a payload as space separated hex bytes, truncated to
// limit bytes.
func HexPayload(data []byte, limit int) string {
	var sb strings.Builder
	for i := 0; i < len(data) && i < limit; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", data[i])
	}
	if len(data) > limit {
		sb.WriteString(" ...")
	}
	return sb.String()
}
