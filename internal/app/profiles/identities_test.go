package profiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
)

func TestValidatePermittedUsers_DropsInvalidEntries(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	got, err := ValidatePermittedUsers(zap.New(core), []byte(`[" u2 ", "", 7, null, {"id":"u3"}, "u4", "u4"]`))
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"u2", "u4", "u4"}, got)
	assert.Equal(t, 4, logs.FilterMessage("dropping invalid user id").Len())

	first := logs.All()[0].ContextMap()
	assert.Equal(t, "permittedUsers", first["field"])
	assert.EqualValues(t, 1, first["index"])
}

func TestValidateAccessRequests_NullAndAbsentAreEmpty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "null"} {
		got, err := ValidateAccessRequests(zap.NewNop(), []byte(raw))
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestValidateAccessRequests_RejectsNonArray(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`"u2"`, `{"u2":true}`, `[`} {
		_, err := ValidateAccessRequests(zap.NewNop(), []byte(raw))
		require.Error(t, err, raw)
		assert.True(t, IsCode(err, CodeValidation), "err=%v", err)
	}
}
