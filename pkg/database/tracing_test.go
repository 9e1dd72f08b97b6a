package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanghoang23012003-cmd/K24-Learning-Management-System/pkg/logger"
)

func TestTraceQuery_EndIsSafe(t *testing.T) {
	ctx, end := TraceQuery(context.Background(), "GetReview", "SELECT 1")
	require.NotNil(t, ctx)
	end(nil)
	end(errors.New("already ended, must not panic"))
}

func TestSlowQueryLogging(t *testing.T) {
	var buf bytes.Buffer
	SetSlowQueryLogging(time.Nanosecond, logger.NewWithWriter("test", "warn", &buf))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "ListByCourse", "SELECT * FROM reviews")
	time.Sleep(time.Millisecond)
	end(nil)

	require.NotZero(t, buf.Len(), "slow query warning expected")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "slow query detected", entry["msg"])
	assert.Equal(t, "ListByCourse", entry["operation"])
}

func TestSlowQueryLogging_DisabledByZeroThreshold(t *testing.T) {
	var buf bytes.Buffer
	SetSlowQueryLogging(0, logger.NewWithWriter("test", "warn", &buf))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "GetCourse", "SELECT 1")
	end(nil)

	assert.Zero(t, buf.Len())
}
