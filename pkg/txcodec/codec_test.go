package txcodec

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrtyk/ledger-coordinator/api"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{100, "100.00"},
		{250.5, "250.50"},
		{0.1, "0.10"},
		{9750.004, "9750.00"},
		{9750.006, "9750.01"},
		{1234567.89, "1234567.89"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.in), "FormatAmount(%v)", tt.in)
	}
}

func TestEncode(t *testing.T) {
	e := NewEncoder("cli")

	t.Run("deposit", func(t *testing.T) {
		payload, txID := e.Encode(api.Operation{
			Type:   api.OpDeposit,
			Source: api.AccountA,
			Amount: 250.5,
		})
		require.NotEmpty(t, txID)
		assert.Equal(t, "DEPOSIT;KONTO_A;250.50;TX_ID:"+txID, payload)
	})

	t.Run("withdraw", func(t *testing.T) {
		payload, txID := e.Encode(api.Operation{
			Type:   api.OpWithdraw,
			Source: api.AccountB,
			Amount: 100,
		})
		assert.Equal(t, "WITHDRAW;KONTO_B;100.00;TX_ID:"+txID, payload)
	})

	t.Run("transfer", func(t *testing.T) {
		payload, txID := e.Encode(api.Operation{
			Type:        api.OpTransfer,
			Source:      api.AccountA,
			Destination: api.AccountB,
			Amount:      250,
		})
		assert.Equal(t, "TRANSFER;KONTO_A;KONTO_B;250.00;TX_ID:"+txID, payload)
	})

	t.Run("ids are unique per encoding", func(t *testing.T) {
		op := api.Operation{Type: api.OpDeposit, Source: api.AccountA, Amount: 1}
		seen := make(map[string]struct{})
		for n := 0; n < 1000; n++ {
			_, txID := e.Encode(op)
			_, dup := seen[txID]
			require.False(t, dup, "duplicate tx id %s", txID)
			seen[txID] = struct{}{}
		}
	})
}

func TestDecodeRoundTrip(t *testing.T) {
	e := NewEncoder("test")
	ops := []api.Operation{
		{Type: api.OpDeposit, Source: api.AccountA, Amount: 100.00},
		{Type: api.OpWithdraw, Source: api.AccountB, Amount: 0.01},
		{Type: api.OpTransfer, Source: api.AccountA, Destination: api.AccountB, Amount: 250.00},
	}

	for _, op := range ops {
		t.Run(string(op.Type), func(t *testing.T) {
			payload, txID := e.Encode(op)
			d, err := Decode(payload)
			require.NoError(t, err)

			assert.Equal(t, op.Type, d.Op.Type)
			assert.Equal(t, op.Source, d.Op.Source)
			assert.Equal(t, op.Destination, d.Op.Destination)
			assert.Equal(t, Cents(op.Amount), Cents(d.Op.Amount))
			assert.Equal(t, txID, d.TxID)
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("tx id is optional", func(t *testing.T) {
		d, err := Decode("DEPOSIT;KONTO_A;50.00")
		require.NoError(t, err)
		assert.Equal(t, api.OpDeposit, d.Op.Type)
		assert.Empty(t, d.TxID)
	})

	t.Run("tolerates whitespace around fields", func(t *testing.T) {
		d, err := Decode("TRANSFER; KONTO_A ; KONTO_B ; 250.00 ")
		require.NoError(t, err)
		assert.Equal(t, api.AccountA, d.Op.Source)
		assert.Equal(t, api.AccountB, d.Op.Destination)
		assert.Equal(t, int64(25000), Cents(d.Op.Amount))
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		for _, payload := range []string{
			"",
			"DEPOSIT;KONTO_A",
			"DEPOSIT;KONTO_A;abc",
			"TRANSFER;KONTO_A;250.00",
			"NOPE;KONTO_A;250.00",
			"DEPOSIT;KONTO_A;50.00;TX_ID:",
			strings.Repeat(";", 10),
		} {
			_, err := Decode(payload)
			assert.Error(t, err, "payload %q", payload)
		}
	})

	t.Run("error names the payload", func(t *testing.T) {
		_, err := Decode("BOGUS;X;1.00")
		require.Error(t, err)
		assert.Contains(t, err.Error(), fmt.Sprintf("%q", "BOGUS;X;1.00"))
	})
}
