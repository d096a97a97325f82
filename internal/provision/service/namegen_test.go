package service_test

import (
	"strings"
	"testing"

	"github.com/claim-deploy/claim-deploy-backend/internal/provision/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProjectName(t *testing.T) {
	t.Run("carries the temporary prefix", func(t *testing.T) {
		name, err := service.GenerateProjectName()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(name, service.TempProjectPrefix+"-"))
	})

	t.Run("suffix is lowercase alphanumeric of fixed length", func(t *testing.T) {
		name, err := service.GenerateProjectName()
		require.NoError(t, err)

		suffix := strings.TrimPrefix(name, service.TempProjectPrefix+"-")
		assert.Len(t, suffix, 10)
		for _, r := range suffix {
			ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
			assert.True(t, ok, "unexpected character %q in %s", r, name)
		}
	})

	t.Run("names do not repeat", func(t *testing.T) {
		seen := make(map[string]struct{}, 10000)
		for i := 0; i < 10000; i++ {
			name, err := service.GenerateProjectName()
			require.NoError(t, err)
			_, dup := seen[name]
			require.False(t, dup, "duplicate name %s", name)
			seen[name] = struct{}{}
		}
	})
}

func TestGenerateSecret(t *testing.T) {
	secret, err := service.GenerateSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 64)

	other, err := service.GenerateSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}
