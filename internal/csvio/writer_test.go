package csvio

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdelape/txproc/internal/ledger"
)

func TestWriteAccounts_FixedPrecision(t *testing.T) {
	accounts := []ledger.Account{
		{
			Client:    1,
			Available: decimal.RequireFromString("1.5"),
			Held:      decimal.Zero,
		},
		{
			Client:    2,
			Available: decimal.RequireFromString("-0.25"),
			Held:      decimal.RequireFromString("2.1234"),
			Locked:    true,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts))

	want := "client,available,held,total,locked\n" +
		"1,1.5000,0.0000,1.5000,false\n" +
		"2,-0.2500,2.1234,1.8734,true\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteAccounts_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, nil))
	assert.Equal(t, "client,available,held,total,locked\n", buf.String())
}

func TestWriteAccounts_PreservesGivenOrder(t *testing.T) {
	accounts := []ledger.Account{
		{Client: 9, Available: decimal.Zero, Held: decimal.Zero},
		{Client: 2, Available: decimal.Zero, Held: decimal.Zero},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts))

	want := "client,available,held,total,locked\n" +
		"9,0.0000,0.0000,0.0000,false\n" +
		"2,0.0000,0.0000,0.0000,false\n"
	assert.Equal(t, want, buf.String())
}
