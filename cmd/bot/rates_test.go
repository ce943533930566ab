package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funding_bot/internal/models"
	"funding_bot/internal/modules/config"
)

func TestRenderRates(t *testing.T) {
	now := time.Date(2026, 1, 1, 7, 59, 55, 0, time.UTC)
	funding := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	snap := []models.FundingEntry{
		{Symbol: "AAAUSDT", FundingRate: 0.0001, MarkPrice: 1, NextFundingTime: funding},
		{Symbol: "BBBUSDT", FundingRate: -0.005, MarkPrice: 2.5, NextFundingTime: funding},
		{Symbol: "CCCUSDT", FundingRate: -0.002, MarkPrice: 100, NextFundingTime: funding.Add(time.Hour)},
	}

	var buf bytes.Buffer
	renderRates(&buf, snap, 2, config.Default().Strategy, now)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "SYMBOL"))
	assert.True(t, strings.HasPrefix(lines[1], "BBBUSDT"))
	assert.Contains(t, lines[1], "-0.5000")
	assert.Contains(t, lines[1], "00:00:05")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[1]), "*"))
	assert.True(t, strings.HasPrefix(lines[2], "CCCUSDT"))
	assert.Contains(t, lines[2], "01:00:05")
	assert.False(t, strings.HasSuffix(strings.TrimSpace(lines[2]), "*"))
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&buf)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "funding_bot dev\n", buf.String())
}
