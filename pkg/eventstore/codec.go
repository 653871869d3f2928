package eventstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DecodeFunc rehydrates a decoded event_data payload into a typed value.
// Registered per event_type via RegisterDecoder; LoadEvents itself stays
// generic (C2) and never requires the registry to be populated.
type DecodeFunc func(data []byte) (any, error)

var decoderRegistry = map[string]DecodeFunc{}

// RegisterDecoder associates an event type tag with a typed decoder.
// Call from an init() in the package that owns the event's Go type.
func RegisterDecoder(eventType string, fn DecodeFunc) {
	decoderRegistry[eventType] = fn
}

// Decode re-hydrates data into its typed Go representation using the
// decoder registered for eventType. It is an optional convenience on top
// of the generic LoadEvents contract (see SPEC_FULL.md, design note 4).
func Decode(eventType string, data []byte) (any, error) {
	fn, ok := decoderRegistry[eventType]
	if !ok {
		return nil, &DecodeError{
			EventStoreError: EventStoreError{
				Op:  "Decode",
				Err: fmt.Errorf("no decoder registered for event type %q", eventType),
			},
			Field: "event_type",
		}
	}
	return fn(data)
}

// envelope is the canonical textual object notation wrapper: a
// self-describing event_type -> data pair decodable without knowledge
// of the specific event type (C2).
type envelope struct {
	Type     string          `json:"type"`
	Metadata Metadata        `json:"metadata"`
	Data     json.RawMessage `json:"data"`
}

// Encode serializes a domain event into the canonical payload. data must
// already be JSON-marshalable with decimal.Decimal fields for any
// fixed-point amounts (never float64) and time.Time fields carrying a
// timezone (UTC is enforced on Metadata.Timestamp below). Encoding is
// deterministic given the same input (C1): encoding/json already sorts
// map keys and we never feed it non-deterministic types.
func Encode(eventType string, metadata Metadata, data any) ([]byte, error) {
	if eventType == "" {
		return nil, &EncodeError{
			EventStoreError: EventStoreError{Op: "Encode", Err: fmt.Errorf("event type is empty")},
			Field:           "type",
		}
	}
	if metadata.Timestamp.IsZero() {
		return nil, &EncodeError{
			EventStoreError: EventStoreError{Op: "Encode", Err: fmt.Errorf("metadata.timestamp is zero")},
			Field:           "metadata.timestamp",
		}
	}
	metadata.Timestamp = metadata.Timestamp.UTC()

	rawData, err := json.Marshal(data)
	if err != nil {
		return nil, &EncodeError{
			EventStoreError: EventStoreError{Op: "Encode", Err: fmt.Errorf("marshal data: %w", err)},
			Field:           "data",
		}
	}

	env := envelope{Type: eventType, Metadata: metadata, Data: rawData}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return nil, &EncodeError{
			EventStoreError: EventStoreError{Op: "Encode", Err: fmt.Errorf("marshal envelope: %w", err)},
			Field:           "envelope",
		}
	}
	// json.Encoder.Encode appends a trailing newline; trim it so the
	// payload round-trips byte-identically through storage.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeEnvelope parses a stored payload generically, without knowledge
// of the specific event type (C2). It returns the event type tag, the
// still-encoded data sub-object, and the metadata.
func DecodeEnvelope(payload []byte) (eventType string, data json.RawMessage, metadata Metadata, err error) {
	var env envelope
	if decErr := json.Unmarshal(payload, &env); decErr != nil {
		err = &DecodeError{
			EventStoreError: EventStoreError{Op: "DecodeEnvelope", Err: decErr},
			Field:           "envelope",
		}
		return
	}
	if env.Type == "" {
		err = &DecodeError{
			EventStoreError: EventStoreError{Op: "DecodeEnvelope", Err: fmt.Errorf("envelope missing type")},
			Field:           "type",
		}
		return
	}
	return env.Type, env.Data, env.Metadata, nil
}

// Amount is a fixed-point decimal that always marshals to a quoted
// string, never a floating-point number, so values survive a round trip
// with no loss (C3). decimal.Decimal.String() trims trailing fractional
// zeros at parse time (e.g. "10000.00" normalizes to "10000"), which
// would silently change the wire form of an amount that round-trips
// through the store — so Amount keeps the exact input string alongside
// the parsed Decimal (used only for arithmetic/comparison) and always
// marshals the original string, verbatim.
type Amount struct {
	decimal.Decimal
	raw string
}

// NewAmount builds an Amount from a decimal string (e.g. "10000.00"),
// preserving s exactly for MarshalJSON regardless of how decimal.Decimal
// would normally format it.
func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, &EncodeError{
			EventStoreError: EventStoreError{Op: "NewAmount", Err: err},
			Field:           "amount",
		}
	}
	return Amount{Decimal: d, raw: s}, nil
}

// MarshalJSON always emits the exact decimal string Amount was built or
// decoded from, never a reformatted/trimmed Decimal.String().
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw)
}

// UnmarshalJSON accepts the decimal string form (the only form Encode
// ever produces); it rejects bare JSON numbers to keep precision honest.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &DecodeError{
			EventStoreError: EventStoreError{Op: "Amount.UnmarshalJSON", Err: fmt.Errorf("amount must be a JSON string, not a number")},
			Field:           "amount",
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return &DecodeError{
			EventStoreError: EventStoreError{Op: "Amount.UnmarshalJSON", Err: err},
			Field:           "amount",
		}
	}
	a.Decimal = d
	a.raw = s
	return nil
}

// FormatTimestamp renders t in the canonical ISO-8601 UTC sub-second form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
