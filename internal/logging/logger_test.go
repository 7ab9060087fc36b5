package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("chatty"))
}

func TestNewLogger_WritesJSON(t *testing.T) {
	l := NewLogger("info")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithFields(Fields{"actor_id": "a1"}).Info("profile updated")
	l.Debug("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "a1", entry["actor_id"])
	assert.Equal(t, "profile updated", entry["msg"])
}
