package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typescope/pkg/config"
	"typescope/pkg/extractor"
	"typescope/pkg/model"
)

func TestNewProvider_Reflect(t *testing.T) {
	p, err := newProvider(config.AgentConfig{Provider: "reflect"})
	require.NoError(t, err)
	assert.Equal(t, config.ServiceName, p.UnitName())

	types, err := p.Types(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, types)
}

func TestNewProvider_UnitOverride(t *testing.T) {
	p, err := newProvider(config.AgentConfig{Provider: "reflect", UnitName: "game"})
	require.NoError(t, err)
	assert.Equal(t, "game", p.UnitName())

	snap, _ := extractor.New(p, extractor.WithLogger(zerolog.Nop())).Extract(context.Background())
	assert.Equal(t, "game", snap.SourceName)
}

func TestNewProvider_Source(t *testing.T) {
	p, err := newProvider(config.AgentConfig{Provider: "source", SourceDir: ".", SourcePattern: "./pkg"})
	require.NoError(t, err)
	assert.Equal(t, "./pkg", p.UnitName())
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := newProvider(config.AgentConfig{Provider: "magic"})
	assert.Error(t, err)
}

func TestSelfRegistry_Extracts(t *testing.T) {
	ext := extractor.New(selfRegistry("self"), extractor.WithLogger(zerolog.Nop()))
	snap, report := ext.Extract(context.Background())

	assert.Nil(t, report.Failed)
	assert.Nil(t, report.Partial)
	assert.Empty(t, report.Dropped)

	mode := snap.Find("typescope/pkg/channel.Mode")
	require.NotNil(t, mode)
	assert.True(t, mode.IsEnum)
	assert.Len(t, mode.Fields, 2)

	status := snap.Find("typescope/internal/server.Status")
	require.NotNil(t, status)
	assert.True(t, status.IsStruct)

	opener := snap.Find("typescope/pkg/channel.Opener")
	require.NotNil(t, opener)
	assert.True(t, opener.IsInterface)
}

func TestPrintSummary(t *testing.T) {
	snap := &model.Snapshot{
		SourceName: "app",
		Types: []model.TypeDescriptor{
			{FullName: "app.Widget", Fields: []model.FieldDescriptor{{Name: "a"}, {Name: "b"}}},
		},
	}
	report := extractor.Report{
		Dropped: []extractor.TypeFault{{Type: "app.Broken", Err: errors.New("boom")}},
	}

	var buf bytes.Buffer
	printSummary(&buf, snap, report)
	out := buf.String()

	assert.Contains(t, out, "Unit: app\n")
	assert.Contains(t, out, "Total types found: 1\n")
	assert.Contains(t, out, "First type: app.Widget\n")
	assert.Contains(t, out, "  Fields: 2\n")
	assert.Contains(t, out, "Dropped: ")
	assert.True(t, strings.Contains(out, "app.Broken"))
}
