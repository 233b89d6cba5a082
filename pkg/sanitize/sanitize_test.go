package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageContent(t *testing.T) {
	assert.Equal(t, "hello", MessageContent("  hello  "))
	assert.Equal(t, "hello", MessageContent("he\x00llo\x01"))
	assert.Equal(t, "line one\nline two", MessageContent("line one\nline two"))
	assert.Equal(t, "tab\tkept", MessageContent("tab\tkept"))
	assert.Equal(t, "", MessageContent("   \x00 "))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "pod.png", Filename("pod.png"))
	assert.Equal(t, "pod.png", Filename("../../pod.png"))
	assert.Equal(t, "pod.png", Filename(`C:\uploads\pod.png`))
	assert.Equal(t, "pod.png", Filename("  pod.png"))
	assert.Equal(t, "podpng", Filename("pod\x00png"))
	assert.Equal(t, "upload", Filename("  "))
	assert.Equal(t, "upload", Filename("../"))
}
