package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, New(false).GetLevel())
	assert.Equal(t, zerolog.DebugLevel, New(true).GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf, false)

	log.Debug().Msg("hidden")
	log.Info().Str("batch", "b1").Msg("imported")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"batch":"b1"`)
	assert.Contains(t, out, `"message":"imported"`)
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf, true))

	log := FromContext(ctx)
	log.Debug().Msg("test")
	assert.Contains(t, buf.String(), "test")
}

func TestFromContext_Default(t *testing.T) {
	log := FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}
