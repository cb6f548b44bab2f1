package zkp

import (
	"fmt"
	"math/big"
	"strings"
)

// ProofFieldCount is the number of scalars in a serialized proof: a(2), b(4), c(2), input(1).
const ProofFieldCount = 9

var invisibles = strings.NewReplacer(
	"\u200B", "",
	"\u200C", "",
	"\u200D", "",
	"\uFEFF", "",
)

// Payload is the argument set of the verifier contract's verifyProof entry point.
type Payload struct {
	A     [2]*big.Int
	B     [2][2]*big.Int
	C     [2]*big.Int
	Input [1]*big.Int
}

// HashID is the proof's revocable hash identifier in decimal form.
func (p *Payload) HashID() string {
	return p.Input[0].String()
}

// Scalars returns the nine values in serialization order.
func (p *Payload) Scalars() []*big.Int {
	return []*big.Int{
		p.A[0], p.A[1],
		p.B[0][0], p.B[0][1], p.B[1][0], p.B[1][1],
		p.C[0], p.C[1],
		p.Input[0],
	}
}

// FormatError reports a malformed proof string. Field is the zero-based index
// of the offending value, or -1 when the field count is wrong.
type FormatError struct {
	Field int
	Count int
	Value string
}

func (e *FormatError) Error() string {
	if e.Field < 0 {
		return fmt.Sprintf("invalid proof: expected %d comma-separated values, got %d", ProofFieldCount, e.Count)
	}
	return fmt.Sprintf("invalid proof: failed to parse value at index %d (%q)", e.Field, e.Value)
}

// ParseProof parses the comma-separated proof text pasted by a user.
// Values prefixed with 0x are hexadecimal, everything else is decimal.
func ParseProof(text string) (*Payload, error) {
	clean := strings.TrimSpace(invisibles.Replace(text))

	parts := strings.Split(clean, ",")
	if len(parts) != ProofFieldCount {
		return nil, &FormatError{Field: -1, Count: len(parts)}
	}

	values := make([]*big.Int, ProofFieldCount)
	for i, part := range parts {
		part = strings.TrimSpace(part)
		v, ok := parseScalar(part)
		if !ok {
			return nil, &FormatError{Field: i, Count: len(parts), Value: part}
		}
		values[i] = v
	}

	return &Payload{
		A:     [2]*big.Int{values[0], values[1]},
		B:     [2][2]*big.Int{{values[2], values[3]}, {values[4], values[5]}},
		C:     [2]*big.Int{values[6], values[7]},
		Input: [1]*big.Int{values[8]},
	}, nil
}

func parseScalar(s string) (*big.Int, bool) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	if s == "" || s[0] == '-' || s[0] == '+' {
		return nil, false
	}
	return new(big.Int).SetString(s, base)
}
