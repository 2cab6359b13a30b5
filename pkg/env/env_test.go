package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvBoolOrDefault(t *testing.T) {
	assert.True(t, GetEnvBoolOrDefault("ENV_TEST_BOOL_UNSET", true))
	assert.False(t, GetEnvBoolOrDefault("ENV_TEST_BOOL_UNSET", false))

	t.Setenv("ENV_TEST_BOOL", "false")
	assert.False(t, GetEnvBoolOrDefault("ENV_TEST_BOOL", true))

	t.Setenv("ENV_TEST_BOOL", "not-a-bool")
	assert.True(t, GetEnvBoolOrDefault("ENV_TEST_BOOL", true))
}

func TestGetEnvInt64List(t *testing.T) {
	t.Setenv("ENV_TEST_IDS", "123, 456,789")
	ids, err := GetEnvInt64List("ENV_TEST_IDS")
	require.NoError(t, err)
	assert.Equal(t, []int64{123, 456, 789}, ids)

	t.Setenv("ENV_TEST_IDS", "123,abc")
	_, err = GetEnvInt64List("ENV_TEST_IDS")
	assert.Error(t, err)

	_, err = GetEnvInt64List("ENV_TEST_IDS_UNSET")
	assert.Error(t, err)
}
