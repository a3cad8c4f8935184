package services

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
		seen[code] = true
	}
	// 200 draws from 900k values colliding down to a handful would point
	// at a broken generator.
	assert.Greater(t, len(seen), 150)
}

func TestVerifyOTP(t *testing.T) {
	now := time.Now()
	future := now.Add(2 * time.Minute)
	past := now.Add(-time.Minute)

	assert.True(t, VerifyOTP("123456", &future, "123456", now))
	assert.True(t, VerifyOTP("123456", &future, " 123456 ", now))

	assert.False(t, VerifyOTP("123456", &future, "654321", now))
	assert.False(t, VerifyOTP("123456", &past, "123456", now))
	assert.False(t, VerifyOTP("123456", nil, "123456", now))
	assert.False(t, VerifyOTP("", &future, "", now))
}
