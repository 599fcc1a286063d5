package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SooL/sool-builder/internal/store"
)

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("yaml"))
	assert.Error(t, validateFormat(""))
}

func TestParseIDArg(t *testing.T) {
	t.Parallel()
	id, err := parseIDArg("42", "peripheral-id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseIDArg("-1", "peripheral-id")
	assert.Error(t, err)
	_, err = parseIDArg("abc", "peripheral-id")
	assert.Error(t, err)
}

func TestFilterGuards(t *testing.T) {
	t.Parallel()
	rows := []store.GuardRow{
		{Alias: "TIM_GENERAL_4_TIM3", Scope: "STM32F101|STM32F103"},
		{Alias: "GPIO_GPIOF", Scope: "STM32L053"},
	}

	assert.Len(t, filterGuards(rows, "STM32F1*"), 1)
	assert.Len(t, filterGuards(rows, "STM32*"), 2)
	assert.Empty(t, filterGuards(rows, "STM32H7*"))
	assert.Equal(t, "GPIO_GPIOF", filterGuards(rows, "STM32L053")[0].Alias)

	// Malformed patterns match nothing.
	assert.Empty(t, filterGuards(rows, "STM32[1*"))
}
