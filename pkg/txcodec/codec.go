// Package txcodec implements the canonical single-line wire encoding of
// ledger operations.
//
// Grammar:
//
//	DEPOSIT;<account>;<amount>;TX_ID:<id>
//	WITHDRAW;<account>;<amount>;TX_ID:<id>
//	TRANSFER;<source>;<destination>;<amount>;TX_ID:<id>
//
// Amounts are formatted with exactly two decimal places. The transaction id
// is unique within the coordinator's lifetime so receiving nodes can
// deduplicate or audit.
package txcodec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shrtyk/ledger-coordinator/api"
)

const txIDMarker = "TX_ID:"

// FormatAmount renders an amount with exactly two decimal places.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(math.Round(amount*100)/100, 'f', 2, 64)
}

// Cents converts an amount to an integer number of cents, the unit at which
// monetary values are compared.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Encoder produces wire payloads with process-unique transaction ids.
// The zero value is not usable; call NewEncoder.
type Encoder struct {
	prefix string
	seq    atomic.Uint64
	now    func() time.Time
}

// NewEncoder returns an Encoder whose transaction ids start with prefix.
func NewEncoder(prefix string) *Encoder {
	return &Encoder{prefix: prefix, now: time.Now}
}

// Encode converts a semantic operation into the canonical payload and
// returns it along with the generated transaction id. The operation is
// assumed validated; Encode does not check it.
func (e *Encoder) Encode(op api.Operation) (payload, txID string) {
	txID = e.nextTxID()
	amt := FormatAmount(op.Amount)
	switch op.Type {
	case api.OpTransfer:
		payload = fmt.Sprintf("%s;%s;%s;%s;%s%s",
			op.Type, op.Source, op.Destination, amt, txIDMarker, txID)
	default:
		payload = fmt.Sprintf("%s;%s;%s;%s%s",
			op.Type, op.Source, amt, txIDMarker, txID)
	}
	return payload, txID
}

// nextTxID derives a process-unique id from the wall clock and an atomic
// sequence number. Two encodings of the same operation never share an id.
func (e *Encoder) nextTxID() string {
	return fmt.Sprintf("%s-%d-%d", e.prefix, e.now().UnixNano(), e.seq.Add(1))
}

// Decoded is the result of parsing a wire payload.
type Decoded struct {
	Op   api.Operation
	TxID string
}

// Decode parses a canonical payload back into its semantic operation.
// The TX_ID field is optional so logs written by foreign clients can still
// be replayed.
func Decode(payload string) (*Decoded, error) {
	parts := strings.Split(strings.TrimSpace(payload), ";")
	if len(parts) < 3 {
		return nil, fmt.Errorf("payload %q: too few fields", payload)
	}

	d := &Decoded{}
	if last := parts[len(parts)-1]; strings.HasPrefix(last, txIDMarker) {
		d.TxID = strings.TrimPrefix(last, txIDMarker)
		if d.TxID == "" {
			return nil, fmt.Errorf("payload %q: empty transaction id", payload)
		}
		parts = parts[:len(parts)-1]
	}

	typ := api.OpType(strings.ToUpper(strings.TrimSpace(parts[0])))
	switch typ {
	case api.OpDeposit, api.OpWithdraw:
		if len(parts) != 3 {
			return nil, fmt.Errorf("payload %q: want TYPE;account;amount", payload)
		}
		amount, err := parseAmount(parts[2])
		if err != nil {
			return nil, fmt.Errorf("payload %q: %w", payload, err)
		}
		d.Op = api.Operation{
			Type:   typ,
			Source: api.Account(strings.TrimSpace(parts[1])),
			Amount: amount,
		}
	case api.OpTransfer:
		if len(parts) != 4 {
			return nil, fmt.Errorf("payload %q: want TRANSFER;source;destination;amount", payload)
		}
		amount, err := parseAmount(parts[3])
		if err != nil {
			return nil, fmt.Errorf("payload %q: %w", payload, err)
		}
		d.Op = api.Operation{
			Type:        typ,
			Source:      api.Account(strings.TrimSpace(parts[1])),
			Destination: api.Account(strings.TrimSpace(parts[2])),
			Amount:      amount,
		}
	default:
		return nil, fmt.Errorf("payload %q: unknown operation type %q", payload, parts[0])
	}

	return d, nil
}

func parseAmount(s string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q: %w", s, err)
	}
	return amount, nil
}
