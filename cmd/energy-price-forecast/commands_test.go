package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurgeRequiresConfirm(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"purge", "--groups", "weather"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "groups [weather]")
	assert.Contains(t, out.String(), "views [air_quality_fv]")
	assert.Contains(t, out.String(), "--confirm")
}

func TestRegisterModelRequiresFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"register-model"})

	assert.Error(t, cmd.Execute())
}
