package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: "   ", want: ""},
		{name: "plain", in: "3.5g", want: "3.5g"},
		{name: "mixed case", in: "1 G", want: "1g"},
		{name: "padded", in: " 1g ", want: "1g"},
		{name: "parenthetical preferred", in: "1 g (1g)", want: "1g"},
		{name: "parenthetical id differs from label", in: "Eighth (3.5G)", want: "3.5g"},
		{name: "empty parens ignored", in: "Large ()", want: "large()"},
		{name: "composite key", in: "fl-01:3.5g", want: "3.5g"},
		{name: "composite with label", in: "fl-01: 1 g (1G)", want: "1g"},
		{name: "composite without variant", in: "fl-01:", want: ""},
		{name: "parenthetical composite", in: "x (fl-01:7G)", want: "7g"},
		{name: "tabs and newlines", in: "\t14 g\n", want: "14g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.in))
		})
	}
}

func TestCanonical_Idempotent(t *testing.T) {
	inputs := []string{
		"", "1 G", " 1g ", "1 g (1g)", "fl-01:3.5g", "a:b:c", "( )", "((x))",
		"Large ()", "x (a:b)", "ÄBC", "half ounce (14 G)", "(abc",
	}
	for _, in := range inputs {
		once := Canonical(in)
		assert.Equal(t, once, Canonical(once), "input %q", in)
	}
}

func TestCanonical_WhitespaceAndCaseInsensitive(t *testing.T) {
	assert.Equal(t, Canonical("1g"), Canonical("1 G"))
	assert.Equal(t, Canonical("1g"), Canonical(" 1g "))
	assert.Equal(t, Canonical("3.5 G"), Canonical("3.5g"))
	assert.NotEqual(t, Canonical("3.5g"), Canonical(""))
}

func TestFromPtr(t *testing.T) {
	assert.Equal(t, "", FromPtr(nil))
	v := " 7 G "
	assert.Equal(t, "7g", FromPtr(&v))
	assert.Nil(t, Ptr(""))
	assert.Equal(t, "7g", *Ptr("7g"))
}

func TestSplitComposite(t *testing.T) {
	pid, v, ok := SplitComposite("fl-01:3.5 G")
	assert.True(t, ok)
	assert.Equal(t, "fl-01", pid)
	assert.Equal(t, "3.5g", v)

	pid, v, ok = SplitComposite("fl-01")
	assert.False(t, ok)
	assert.Equal(t, "fl-01", pid)
	assert.Equal(t, "", v)
}
