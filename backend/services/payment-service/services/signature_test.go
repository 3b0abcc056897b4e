package services_test

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/printforge/storefront/backend/services/payment-service/models"
	"github.com/printforge/storefront/backend/services/payment-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func signedEnvelope(properties []string, checksum string, rawTx string, ts int64) *models.PaymentEvent {
	var tx models.Transaction
	_ = json.Unmarshal([]byte(rawTx), &tx)
	return &models.PaymentEvent{
		Event:     models.EventTransactionUpdated,
		Data:      models.EventData{Transaction: &tx, RawTransaction: json.RawMessage(rawTx)},
		Timestamp: ts,
		Signature: &models.EventSignature{Properties: properties, Checksum: checksum},
	}
}

func TestChecksum_RoundTrip(t *testing.T) {
	raw := json.RawMessage(`{"id":"tx1","status":"APPROVED"}`)

	got, err := services.Checksum([]string{"id", "status"}, raw, 1000, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, sha256Hex("tx1"+"APPROVED"+"1000"+"s3cret"), got)

	v := services.NewSignatureVerifier("s3cret")
	verdict, err := v.Verify(signedEnvelope([]string{"id", "status"}, got, string(raw), 1000))
	require.NoError(t, err)
	assert.Equal(t, services.VerifyOK, verdict)

	verdict, err = v.Verify(signedEnvelope([]string{"id", "status"}, strings.ToUpper(got), string(raw), 1000))
	require.NoError(t, err)
	assert.Equal(t, services.VerifyOK, verdict)

	_, err = v.Verify(signedEnvelope([]string{"id", "status"}, " "+got, string(raw), 1000))
	assert.ErrorIs(t, err, services.ErrInvalidSignature)
}

func TestVerify_EmptyPropertyList(t *testing.T) {
	v := services.NewSignatureVerifier("s3cret")

	verdict, err := v.Verify(signedEnvelope([]string{}, sha256Hex("1000s3cret"), `{"id":"tx1"}`, 1000))
	require.NoError(t, err)
	assert.Equal(t, services.VerifyOK, verdict)

	_, err = v.Verify(signedEnvelope([]string{}, "", `{"id":"tx1"}`, 1000))
	assert.ErrorIs(t, err, services.ErrInvalidSignature)
}

func TestVerify_RejectsEverySingleCharacterMutation(t *testing.T) {
	raw := `{"id":"tx1","status":"APPROVED"}`
	good, err := services.Checksum([]string{"id", "status"}, json.RawMessage(raw), 1000, "s3cret")
	require.NoError(t, err)
	v := services.NewSignatureVerifier("s3cret")

	for i := range good {
		repl := byte('a')
		if good[i] == 'a' {
			repl = 'b'
		}
		mutated := good[:i] + string(repl) + good[i+1:]
		_, err := v.Verify(signedEnvelope([]string{"id", "status"}, mutated, raw, 1000))
		assert.ErrorIs(t, err, services.ErrInvalidSignature, "position %d", i)

		flipped := good[:i] + strings.ToUpper(good[i:i+1]) + good[i+1:]
		if flipped == good {
			continue
		}
		_, err = v.Verify(signedEnvelope([]string{"id", "status"}, flipped, raw, 1000))
		assert.ErrorIs(t, err, services.ErrInvalidSignature, "case flip at position %d", i)
	}
}

func TestVerify_RejectsTamperedPayload(t *testing.T) {
	sum, err := services.Checksum([]string{"id", "status"}, json.RawMessage(`{"id":"tx1","status":"DECLINED"}`), 1000, "s3cret")
	require.NoError(t, err)

	_, err = services.NewSignatureVerifier("s3cret").Verify(
		signedEnvelope([]string{"id", "status"}, sum, `{"id":"tx1","status":"APPROVED"}`, 1000))
	assert.ErrorIs(t, err, services.ErrInvalidSignature)
}

func TestVerify_Policy(t *testing.T) {
	unsigned := &models.PaymentEvent{Event: models.EventTransactionUpdated, Timestamp: 1}
	signed := signedEnvelope([]string{"id"}, sha256Hex("tx11"), `{"id":"tx1"}`, 1)

	verdict, err := services.NewSignatureVerifier("").Verify(unsigned)
	require.NoError(t, err)
	assert.Equal(t, services.VerifyUnauthenticated, verdict)

	_, err = services.NewSignatureVerifier("s3cret").Verify(unsigned)
	assert.ErrorIs(t, err, services.ErrInvalidSignature)

	_, err = services.NewSignatureVerifier("").Verify(signed)
	assert.ErrorIs(t, err, services.ErrInvalidSignature)

	_, err = services.NewSignatureVerifier("s3cret").Verify(signedEnvelope(nil, "abc", `{}`, 1))
	assert.ErrorIs(t, err, services.ErrInvalidSignature)
}

func TestChecksum_Coercion(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "tx9",
		"amount_in_cents": 4990000,
		"ratio": 0.5,
		"big": 1e21,
		"tiny": 0.0000001,
		"approved": true,
		"voided": false,
		"payment_link_id": null,
		"customer_data": {"full_name": "Ada", "phone": "+44 1"},
		"tags": ["a", 1, null],
		"payment_method": {"type": "CARD", "extra": {"last_four": "4242"}},
		"meta": {"z": 1.50, "b": "\u00e9", "c": "a\/b", "d": [1.0, 2e0, "x\u0001\n"], "q": "say \"hi\""},
		"unsafe_int": 9007199254740993,
		"nested_big": {"n": 9007199254740993, "e": 1E-7, "w": 100000000000000000000}
	}`)
	cases := []struct {
		path string
		want string
	}{
		{"id", "tx9"},
		{"amount_in_cents", "4990000"},
		{"ratio", "0.5"},
		{"big", "1e+21"},
		{"tiny", "1e-7"},
		{"approved", "true"},
		{"voided", "false"},
		{"payment_link_id", ""},
		{"missing", ""},
		{"missing.deeper", ""},
		{"customer_data", `{"full_name":"Ada","phone":"+44 1"}`},
		{"tags", `["a",1,null]`},
		{"tags.1", "1"},
		{"tags.2", ""},
		{"tags.7", ""},
		{"payment_method.extra.last_four", "4242"},
		{"meta", `{"z":1.5,"b":"é","c":"a/b","d":[1,2,"x\u0001\n"],"q":"say \"hi\""}`},
		{"meta.b", "é"},
		{"unsafe_int", "9007199254740992"},
		{"nested_big", `{"n":9007199254740992,"e":1e-7,"w":100000000000000000000}`},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got, err := services.Checksum([]string{tc.path}, raw, 0, "")
			require.NoError(t, err)
			assert.Equal(t, sha256Hex(tc.want+"0"), got)
		})
	}
}

func TestChecksum_DottedTransactionPaths(t *testing.T) {
	raw := json.RawMessage(`{"id":"1234-1610641025-49201","status":"APPROVED","amount_in_cents":4490000}`)

	got, err := services.Checksum([]string{"id", "status", "amount_in_cents"}, raw, 1530291411, "prod_events_secret")
	require.NoError(t, err)
	assert.Equal(t, sha256Hex("1234-1610641025-49201APPROVED44900001530291411prod_events_secret"), got)
}
