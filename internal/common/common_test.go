package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

func TestValidatorCollectsErrors(t *testing.T) {
	v := NewValidator().
		Field("document_id", "not-a-uuid", Required, UUID).
		Field("tenant_id", "", Required).
		Field("status", "DONE", OneOf(constants.AnalysisStatuses...)).
		Field("user_id", "u-1", Required, MaxLength(2))

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 4)

	err := v.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "document_id")

	var fe FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "document_id", fe.Field)
	assert.Equal(t, "must be a valid UUID", fe.Reason)

	var app *AppError
	require.ErrorAs(t, err, &app)
	assert.Equal(t, "INVALID_ARGUMENT", app.Code)
}

func TestValidatorPasses(t *testing.T) {
	v := NewValidator().
		Field("document_id", "0b7c8b1e-2f4e-4a55-9a3c-1f7f0f6e9d21", Required, UUID).
		Field("status", "", OneOf(constants.AnalysisStatuses...))
	assert.NoError(t, v.Err())
}

func TestExtractionErrorMatchesSentinels(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(NewExtractionError(constants.StrategyAI, cause), "process")

	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, cause)

	var xe *ExtractionError
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, constants.StrategyAI, xe.Strategy)
}

func TestGRPCStatus(t *testing.T) {
	assert.Equal(t, codes.NotFound, status.Code(GRPCStatus(ErrDocumentNotFound)))
	assert.Equal(t, codes.InvalidArgument, status.Code(GRPCStatus(NewAppError("X", "bad", ErrInvalidInput))))
	assert.Equal(t, codes.Internal, status.Code(GRPCStatus(ErrRecordCreation)))
	assert.NoError(t, GRPCStatus(nil))
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("DB_URL", "file:test.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.LLM.Enabled())
	assert.Equal(t, "sqlite", cfg.Database.Driver)

	cfg.Database.Driver = "mysql"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConfigValidate_ProcessTimeoutBelowCompletionTimeout(t *testing.T) {
	t.Setenv("DB_URL", "file:test.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("OPENAI_TIMEOUT", "45s")

	t.Setenv("PROCESS_TIMEOUT", "30s")
	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "PROCESS_TIMEOUT")

	t.Setenv("PROCESS_TIMEOUT", "45s")
	assert.Error(t, LoadConfig().Validate())

	t.Setenv("PROCESS_TIMEOUT", "90s")
	assert.NoError(t, LoadConfig().Validate())
}
