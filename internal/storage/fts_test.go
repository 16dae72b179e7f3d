package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFTSQueryQuotesPunctuation(t *testing.T) {
	assert.Equal(t, `"auth-service" handler`, SanitizeFTSQuery("auth-service handler"))
	assert.Equal(t, `"src/index.ts"`, SanitizeFTSQuery("src/index.ts"))
	assert.Equal(t, "authenticate user", SanitizeFTSQuery("authenticate user"))
}
