package stripe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvoiceSubscriptionID_TopLevelField(t *testing.T) {
	raw := json.RawMessage(`{"subscription": "sub_123"}`)
	assert.Equal(t, "sub_123", invoiceSubscriptionID(raw))
}

func TestInvoiceSubscriptionID_NestedUnderParent(t *testing.T) {
	raw := json.RawMessage(`{"parent": {"subscription_details": {"subscription": "sub_456"}}}`)
	assert.Equal(t, "sub_456", invoiceSubscriptionID(raw))
}

func TestInvoiceSubscriptionID_NestedWinsOverTopLevel(t *testing.T) {
	raw := json.RawMessage(`{"subscription": "sub_old", "parent": {"subscription_details": {"subscription": "sub_new"}}}`)
	assert.Equal(t, "sub_new", invoiceSubscriptionID(raw))
}

func TestInvoiceSubscriptionID_Missing(t *testing.T) {
	raw := json.RawMessage(`{"amount_paid": 1999}`)
	assert.Equal(t, "", invoiceSubscriptionID(raw))

	assert.Equal(t, "", invoiceSubscriptionID(json.RawMessage(`not-json`)))
}
