package services

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/printforge/storefront/backend/services/payment-service/models"
)

// VerifyResult tells an accepted event apart from one let through unauthenticated.
type VerifyResult int

const (
	VerifyOK VerifyResult = iota
	// VerifyUnauthenticated: no signature and no secret configured (local development).
	VerifyUnauthenticated
)

// SignatureVerifier authenticates events with the processor's body-embedded checksum:
// SHA-256 over the listed transaction properties, the event timestamp and the secret.
type SignatureVerifier struct {
	secret string
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: secret}
}

// Verify applies the signature policy:
//   - a signature block is always checked, and a mismatch is rejected;
//   - a missing block is rejected when a secret is configured;
//   - a missing block with no secret is accepted as VerifyUnauthenticated.
func (v *SignatureVerifier) Verify(event *models.PaymentEvent) (VerifyResult, error) {
	if event.Signature == nil {
		if v.secret == "" {
			return VerifyUnauthenticated, nil
		}
		return VerifyOK, fmt.Errorf("%w: signature missing", ErrInvalidSignature)
	}
	if v.secret == "" {
		return VerifyOK, fmt.Errorf("%w: no secret configured to verify signature", ErrInvalidSignature)
	}
	if event.Signature.Checksum == "" {
		return VerifyOK, fmt.Errorf("%w: empty checksum", ErrInvalidSignature)
	}

	expected, err := Checksum(event.Signature.Properties, event.Data.RawTransaction, event.Timestamp, v.secret)
	if err != nil {
		return VerifyOK, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	// Only the all-lowercase or all-uppercase hex digest matches; mixed case does not.
	received := []byte(event.Signature.Checksum)
	lower := subtle.ConstantTimeCompare([]byte(expected), received)
	upper := subtle.ConstantTimeCompare([]byte(strings.ToUpper(expected)), received)
	if lower|upper != 1 {
		return VerifyOK, fmt.Errorf("%w: checksum mismatch", ErrInvalidSignature)
	}
	return VerifyOK, nil
}

// Checksum computes the lowercase hex SHA-256 of the canonical string
// property values (in order) + timestamp + secret.
func Checksum(properties []string, rawTransaction json.RawMessage, timestamp int64, secret string) (string, error) {
	var sb strings.Builder
	for _, path := range properties {
		s, err := resolveProperty(rawTransaction, path)
		if err != nil {
			return "", fmt.Errorf("property %q: %w", path, err)
		}
		sb.WriteString(s)
	}
	sb.WriteString(strconv.FormatInt(timestamp, 10))
	sb.WriteString(secret)

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:]), nil
}

// resolveProperty walks a dotted path through raw JSON and returns the canonical
// string of the value found. Missing segments resolve to "".
func resolveProperty(raw json.RawMessage, path string) (string, error) {
	cur := raw
	for _, seg := range strings.Split(path, ".") {
		cur = bytes.TrimSpace(cur)
		if len(cur) == 0 {
			return "", nil
		}
		switch cur[0] {
		case '{':
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(cur, &obj); err != nil {
				return "", err
			}
			next, ok := obj[seg]
			if !ok {
				return "", nil
			}
			cur = next
		case '[':
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return "", nil
			}
			var arr []json.RawMessage
			if err := json.Unmarshal(cur, &arr); err != nil {
				return "", err
			}
			if idx < 0 || idx >= len(arr) {
				return "", nil
			}
			cur = arr[idx]
		default:
			return "", nil
		}
	}
	return canonicalString(cur)
}

// canonicalString renders a JSON value the way the processor stringifies it:
// null -> "", strings verbatim, numbers and booleans as literals, objects and arrays
// re-encoded like JSON.stringify in their original key order.
func canonicalString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	switch raw[0] {
	case 'n':
		return "", nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return stringifyJSON(raw)
	default:
		return numberLiteral(string(raw))
	}
}

// stringifyJSON re-encodes a JSON object or array with JSON.stringify output rules:
// no insignificant whitespace, numbers as JS number strings, minimal string escaping.
func stringifyJSON(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var sb strings.Builder
	if err := writeStringified(dec, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeStringified(dec *json.Decoder, sb *strings.Builder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		closing := json.Delim('}')
		if t == '[' {
			closing = ']'
		}
		sb.WriteByte(byte(t))
		for first := true; dec.More(); first = false {
			if !first {
				sb.WriteByte(',')
			}
			if t == '{' {
				key, err := dec.Token()
				if err != nil {
					return err
				}
				name, ok := key.(string)
				if !ok {
					return fmt.Errorf("unexpected object key %v", key)
				}
				writeJSString(sb, name)
				sb.WriteByte(':')
			}
			if err := writeStringified(dec, sb); err != nil {
				return err
			}
		}
		end, err := dec.Token()
		if err != nil {
			return err
		}
		if end != closing {
			return fmt.Errorf("unexpected delimiter %v", end)
		}
		sb.WriteByte(byte(closing))
	case string:
		writeJSString(sb, t)
	case json.Number:
		lit, err := numberLiteral(t.String())
		if err != nil {
			return err
		}
		sb.WriteString(lit)
	case bool:
		sb.WriteString(strconv.FormatBool(t))
	case nil:
		sb.WriteString("null")
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

// writeJSString quotes s as JSON.stringify does: only the quote, the backslash and
// control characters are escaped.
func writeJSString(sb *strings.Builder, s string) {
	const hexDigits = "0123456789abcdef"
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				sb.WriteString(`\u00`)
				sb.WriteByte(hexDigits[r>>4])
				sb.WriteByte(hexDigits[r&0xf])
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}

// numberLiteral prints a JSON number the way JS coerces it to a string: the value is
// rounded to float64, then printed in the shortest round-trip form with the exponent
// thresholds of Number#toString (fixed notation in [1e-6, 1e21)).
func numberLiteral(lit string) (string, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return "", fmt.Errorf("invalid number %q", lit)
	}
	if f == 0 {
		return "0", nil
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[0]
	exp = strings.TrimLeft(exp[1:], "0")
	if exp == "" {
		exp = "0"
	}
	return mantissa + "e" + string(sign) + exp, nil
}
