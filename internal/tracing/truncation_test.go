package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "13*******78", MaskPII("13812345678"))

	masked := MaskPII("myemail@example.com")
	assert.Equal(t, "my", masked[:2])
	assert.Equal(t, "om", masked[len(masked)-2:])
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))

	got := TruncateString("abcdefghijklmnopqrstuvwxyz", 13)
	assert.Contains(t, got, "...")
	assert.LessOrEqual(t, len([]rune(got)), 13)
}

func TestSafeAttributeValueMasksSensitiveNames(t *testing.T) {
	assert.Equal(t, MaskPII("user@example.com"), SafeAttributeValue("user.email", "user@example.com", DefaultMaxLength))
	assert.Equal(t, "plain", SafeAttributeValue("db.operation", "plain", DefaultMaxLength))
}
