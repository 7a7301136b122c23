package main

import (
	"bytes"
	"testing"

	"appdocu/internal/config"
	"appdocu/internal/masteritems"
	"appdocu/src"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(nil, &out))
	assert.Contains(t, out.String(), "masteritems")

	out.Reset()
	require.NoError(t, run([]string{"help"}, &out))
	assert.Contains(t, out.String(), "glossaries")
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := run([]string{"export"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, `unknown command "export"`)
}

func testEnv() *env {
	cfg := &src.Config{}
	cfg.Qlik.AppID = "app-1"
	cfg.Export.Profile = "does-not-exist.yaml"
	return &env{config: cfg}
}

func TestExportFlagsOverrideProfile(t *testing.T) {
	var flags exportFlags
	fs := pflag.NewFlagSet("docu", pflag.ContinueOnError)
	flags.register(fs, testEnv())
	require.NoError(t, fs.Parse([]string{"--format", "text,redis", "--columns", "title", "--no-variables"}))

	profile, err := flags.profile()
	require.NoError(t, err)
	assert.Equal(t, "app-1", flags.appID)
	assert.True(t, profile.Wants(config.FormatRedis))
	assert.False(t, profile.Wants(config.FormatXLSX))
	assert.False(t, profile.MasterItems.IncludeVariables)
	assert.Equal(t, []masteritems.Column{masteritems.ColumnTitle}, profile.Columns())
}

func TestExportFlagsValidation(t *testing.T) {
	var flags exportFlags
	fs := pflag.NewFlagSet("docu", pflag.ContinueOnError)
	flags.register(fs, testEnv())
	require.NoError(t, fs.Parse([]string{"--app", "", "--format", "pdf"}))
	_, err := flags.profile()
	assert.ErrorContains(t, err, "QLIK_APP_ID")

	flags.appID = "app-1"
	_, err = flags.profile()
	assert.ErrorContains(t, err, "unknown output format")
}

func TestCommandsAreRegistered(t *testing.T) {
	for _, name := range []string{"docu", "masteritems", "apps", "users", "glossaries"} {
		assert.Contains(t, commands, name)
	}
}
