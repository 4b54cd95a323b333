package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  string
	}{
		{name: "empty", value: "  ", want: ""},
		{name: "short", value: "ABCD", want: "****"},
		{name: "store code", value: "K7M2QX", want: "****QX"},
		{name: "long", value: "abcdefghijklmnopqrst", want: "****qrst"},
		{name: "expo token", value: "ExponentPushToken[xxxxxxxxxxxxxxxxxx12]", want: "ExponentPushToken[****xx12]"},
		{name: "empty envelope", value: "ExponentPushToken[]", want: "****en[]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MaskSecret(tc.value))
		})
	}
}

func TestMaskJSON(t *testing.T) {
	assert.Nil(t, MaskJSON(nil))

	masked := MaskJSON(map[string]any{
		"token": "ExponentPushToken[abcdefghijklmnop]",
		"count": 3,
		"":      "dropped",
		"nested": map[string]any{
			"code": "K7M2QX",
		},
		"list": []any{"K7M2QX", 1},
	})

	assert.Equal(t, "ExponentPushToken[****mnop]", masked["token"])
	assert.Equal(t, 3, masked["count"])
	assert.NotContains(t, masked, "")
	assert.Equal(t, map[string]any{"code": "****QX"}, masked["nested"])
	assert.Equal(t, []any{"****QX", 1}, masked["list"])
}
