package functional

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillValueForClassifiesByHint(t *testing.T) {
	assert.Equal(t, "test@example.com", FillValueFor("customer_email"))
	assert.Equal(t, "Test User", FillValueFor("full_name"))
	assert.Equal(t, "Test message", FillValueFor("comment_body"))
	assert.Equal(t, "Test message", FillValueFor("contact message"))
	assert.Equal(t, "test", FillValueFor("unrelated_field"))
}

func TestClassifySubmitPrioritizesErrorThenURLChangeThenStatus(t *testing.T) {
	assert.Equal(t, SubmitError, ClassifySubmit(200, true, errors.New("boom")))
	assert.Equal(t, SubmitSuccess, ClassifySubmit(0, true, nil))
	assert.Equal(t, SubmitSuccess, ClassifySubmit(200, false, nil))
	assert.Equal(t, SubmitSubmittedNoResponse, ClassifySubmit(0, false, nil))
	assert.Equal(t, SubmitSubmittedNoResponse, ClassifySubmit(500, false, nil))
}

func TestIsSkippableLinkScheme(t *testing.T) {
	assert.True(t, isSkippableLinkScheme("javascript:void(0)"))
	assert.True(t, isSkippableLinkScheme("mailto:test@example.com"))
	assert.True(t, isSkippableLinkScheme("#section"))
	assert.True(t, isSkippableLinkScheme(""))
	assert.True(t, isSkippableLinkScheme("  TEL:+1234567890"))
	assert.False(t, isSkippableLinkScheme("https://example.com/page"))
	assert.False(t, isSkippableLinkScheme("/relative/path"))
}

func TestSanitizePathMatchesCaptureStageRule(t *testing.T) {
	assert.Equal(t, "index", sanitizePath(""))
	assert.Equal(t, "index", sanitizePath("/"))
	assert.Equal(t, "about_us", sanitizePath("/about us"))
}
