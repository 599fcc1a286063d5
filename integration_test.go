package sool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SooL/sool-builder/internal/emit"
)

// TestEndToEnd runs the full pipeline over the testdata chips and checks the
// rendered headers.
func TestEndToEnd(t *testing.T) {
	res, err := New(WithJobs(1)).Run(context.Background(), testChipPaths())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, emit.WriteHeaders(dir, res.Peripherals, res.Guards))

	readHeader := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(data)
	}

	tim := readHeader("TIM_GENERAL_4.h")
	assert.Contains(t, tim, "#ifndef SOOL_TIM_GENERAL_4_H")
	assert.Contains(t, tim, `#include "sool_chip_setup.h"`)
	assert.Contains(t, tim, "class TIM_GENERAL_4 /// general purpose timers")
	assert.Contains(t, tim, "struct CR1_t: Reg32_t /// control register 1")
	assert.Contains(t, tim, "uint32_t CEN : 1; /// Counter enable")

	// FOO exists on one chip only: conditional type, conditional member.
	assert.Contains(t, tim, "#ifdef TIM_GENERAL_4_FOO")
	assert.Contains(t, tim, "FOO_t FOO; /// @0x050")

	// Layout holes become RESERVED byte arrays.
	assert.Contains(t, tim, "CR1_t CR1; /// @0x000")
	assert.Contains(t, tim, "uint8_t RESERVED_0[8];")
	assert.Contains(t, tim, "SR_t SR; /// @0x010")

	// One accessor per placement; TIM3's address comes through its guard
	// alias.
	assert.Contains(t, tim, "#define TIM2 (*reinterpret_cast<TIM_GENERAL_4*>(0x40000000U))")
	assert.Contains(t, tim, "#ifdef TIM_GENERAL_4_TIM3\n#define TIM3 (*reinterpret_cast<TIM_GENERAL_4*>(TIM_GENERAL_4_TIM3))\n#endif")

	gpio := readHeader("GPIO.h")
	assert.Contains(t, gpio, "class GPIO /// general purpose i/os")
	assert.Contains(t, gpio, "#define GPIOA (*reinterpret_cast<GPIO*>(0x48000000U))")
	assert.Contains(t, gpio, "#ifdef GPIO_GPIOB")

	setup := readHeader(emit.GuardHeaderName)
	assert.Contains(t, setup, "#if defined(STM32TEST3)\n\t#define GPIO_GPIOB 0x48000400\n#else\n\t#define GPIO_GPIOB_NOT\n#endif")
	assert.Contains(t, setup, "#if defined(STM32TEST2)\n\t#define TIM_GENERAL_4_TIM3 0x40000400\n\t#define TIM_GENERAL_4_FOO\n#else\n\t#define TIM_GENERAL_4_TIM3_NOT\n#endif")
	assert.NotContains(t, setup, "#undef TIM_GENERAL_4_FOO")
}
