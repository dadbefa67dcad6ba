package domain

import (
	"bytes"
	"encoding/json"
)

// MessageKind is the outcome category reported to callers.
type MessageKind string

const (
	MessageSuccess        MessageKind = "success"
	MessageError          MessageKind = "error"
	MessageNotFound       MessageKind = "not_found"
	MessageInvalidPayload MessageKind = "invalid_payload"
)

type Message struct {
	Kind    MessageKind `json:"kind" enum:"success,error,not_found,invalid_payload"`
	Message string      `json:"message"`
}

func Success(msg string) Message {
	return Message{Kind: MessageSuccess, Message: msg}
}

// RevenueTotalKey is the reserved category holding the grand sum.
const RevenueTotalKey = "total"

// RevenueLine is one category total.
type RevenueLine struct {
	Source string  `json:"source"`
	Amount float64 `json:"amount"`
}

// RevenueBreakdown holds per-source totals in order of first occurrence,
// followed by the reserved "total" line. It encodes as a JSON object that
// keeps that order.
type RevenueBreakdown []RevenueLine

// Get returns the amount for source and whether it is present.
func (b RevenueBreakdown) Get(source string) (float64, bool) {
	for _, l := range b {
		if l.Source == source {
			return l.Amount, true
		}
	}
	return 0, false
}

// Map flattens the breakdown. Order is lost.
func (b RevenueBreakdown) Map() map[string]float64 {
	out := make(map[string]float64, len(b))
	for _, l := range b {
		out[l.Source] = l.Amount
	}
	return out
}

func (b RevenueBreakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(l.Source)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(l.Amount)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *RevenueBreakdown) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	var out RevenueBreakdown
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var amount float64
		if err := dec.Decode(&amount); err != nil {
			return err
		}
		out = append(out, RevenueLine{Source: key, Amount: amount})
	}
	*b = out
	return nil
}
