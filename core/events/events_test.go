package events

import (
	"math/big"
	"testing"

	"padipay/crypto"
)

func TestPaymentSentRendersRecordFields(t *testing.T) {
	sender := [20]byte{1}
	evt := PaymentSent{
		ID:                   7,
		Sender:               sender,
		RecipientFingerprint: [32]byte{0xab},
		GrossAmount:          big.NewInt(1000),
		FeeAmount:            big.NewInt(50),
		NetAmount:            big.NewInt(950),
		Asset:                "ngn",
		Memo:                 "rent",
		Timestamp:            1700000000,
		IsEscrowed:           true,
	}
	rendered := Render(evt)
	if rendered == nil || rendered.Type != TypePaymentSent {
		t.Fatalf("unexpected rendered event: %+v", rendered)
	}
	want := map[string]string{
		"id":          "7",
		"sender":      crypto.MustNewAddress(sender).String(),
		"grossAmount": "1000",
		"feeAmount":   "50",
		"netAmount":   "950",
		"asset":       "NGN",
		"memo":        "rent",
		"timestamp":   "1700000000",
		"isEscrowed":  "true",
		"claimed":     "false",
	}
	for key, value := range want {
		if got := rendered.Attributes[key]; got != value {
			t.Fatalf("attribute %s: got %q want %q", key, got, value)
		}
	}
	if _, ok := rendered.Attributes["recipient"]; ok {
		t.Fatalf("escrowed payment must not carry a recipient address")
	}
}

func TestRecorderKeepsOrder(t *testing.T) {
	rec := &Recorder{}
	rec.Emit(EscrowAssetChanged{Asset: "ngn", Supported: true})
	rec.Emit(nil)
	rec.Emit(EscrowAssetChanged{Asset: "ngn"})
	types := rec.Types()
	if len(types) != 2 || types[0] != TypeEscrowAssetSupported || types[1] != TypeEscrowAssetRemoved {
		t.Fatalf("unexpected types %v", types)
	}
}
