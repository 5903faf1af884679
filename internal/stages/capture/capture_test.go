package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePathMapsSlashesAndInvalidChars(t *testing.T) {
	assert.Equal(t, "about-us", sanitizePath("/about/us"))
	assert.Equal(t, "a_b_c", sanitizePath("a?b!c"))
	assert.Equal(t, "index", sanitizePath(""))
	assert.Equal(t, "index", sanitizePath("/"))
}

func TestSanitizePathCollapsesRepeatedUnderscores(t *testing.T) {
	assert.Equal(t, "a_b", sanitizePath("a???b"))
}
