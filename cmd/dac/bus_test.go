package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mklimuk/dac/analog"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		given    string
		expected analog.Channel
	}{
		{"a", analog.ChannelA},
		{"B", analog.ChannelB},
		{"h", analog.ChannelH},
		{"all", analog.AllChannels},
		{"ALL", analog.AllChannels},
	}
	for _, test := range tests {
		t.Run(test.given, func(t *testing.T) {
			ch, err := parseChannel(test.given)
			assert.NoError(t, err)
			assert.Equal(t, test.expected, ch)
		})
	}

	_, err := parseChannel("x")
	assert.EqualError(t, err, `unknown channel "x" (expected a-h or all)`)
}

func TestParseClearCode(t *testing.T) {
	tests := []struct {
		given    string
		expected analog.ClearCode
	}{
		{"zero", analog.ClearToZero},
		{"midscale", analog.ClearToMidscale},
		{"fullscale", analog.ClearToFullscale},
		{"ignore", analog.ClearIgnore},
		{"Midscale", analog.ClearToMidscale},
	}
	for _, test := range tests {
		t.Run(test.given, func(t *testing.T) {
			code, err := parseClearCode(test.given)
			assert.NoError(t, err)
			assert.Equal(t, test.expected, code)
		})
	}

	_, err := parseClearCode("half")
	assert.EqualError(t, err, `unknown clear code "half" (expected zero, midscale, fullscale or ignore)`)
}
