package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelsDir = "../../pkg/adapters/file/testdata/models"

func TestRunHeadless_OneLinePerTick(t *testing.T) {
	var out bytes.Buffer
	err := runHeadless(context.Background(), modelsDir+"/traffic.yaml", 6, 0, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 7)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, fmt.Sprintf(`{"current_tick":%d,`, i)), line)
	}
	assert.Contains(t, lines[6], `"color":"green"`)
}

func TestRunHeadless_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, runHeadless(context.Background(), modelsDir+"/missing.yaml", 3, 0, &out))
	assert.Error(t, runHeadless(context.Background(), modelsDir+"/traffic.yaml", 0, 0, &out))
}

func TestRunValidate(t *testing.T) {
	n, err := runValidate(modelsDir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = runValidate(modelsDir + "/traffic.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "atsim version "))
}
