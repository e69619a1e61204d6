package purchase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/boot-pay/boot_pay/internal/fiatledger"
)

func TestEventHandlerPurchasesOnce(t *testing.T) {
	fx := newPurchaseFixture(t, "3.5", 10_000)
	ctx := context.Background()

	payload, err := json.Marshal(PurchaseEvent{
		WalletID:        fx.wallet.ID,
		PaymentMethodID: "acc-buyer",
		PaymentAmount:   "35.00",
		PaymentType:     "BANK_ACCOUNT",
		ClientTxID:      "buy-1",
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	handler := fx.svc.EventHandler()
	if err := handler(ctx, payload); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	// Redelivery with the same client transaction must not credit again.
	if err := handler(ctx, payload); err != nil {
		t.Fatalf("redelivered event: %v", err)
	}

	w, err := fx.wallets.Get(ctx, fx.wallet.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Balance.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected balance 10 after redelivery, got %s", w.Balance)
	}

	treasury, _ := fx.bank.Balance(ctx, fiatledger.TreasuryAccountCode)
	if treasury != 3_500 {
		t.Fatalf("expected treasury 3500 after redelivery, got %d", treasury)
	}
}

func TestEventHandlerRejectsBadPayload(t *testing.T) {
	fx := newPurchaseFixture(t, "3.5", 10_000)
	handler := fx.svc.EventHandler()

	if err := handler(context.Background(), json.RawMessage(`{"walletId":`)); err == nil {
		t.Fatalf("expected decode error")
	}
	payload, _ := json.Marshal(PurchaseEvent{
		WalletID:      fx.wallet.ID,
		PaymentAmount: "not-a-number",
		PaymentType:   "BANK_ACCOUNT",
	})
	if err := handler(context.Background(), payload); err == nil {
		t.Fatalf("expected amount error")
	}
}
