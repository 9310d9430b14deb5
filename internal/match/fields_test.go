package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumbersAfter(t *testing.T) {
	text := "Contract 600128\nCONTRACT NO. 7001234 and contract #12\ncontract number: 9988776\nclaim 555555"
	assert.Equal(t, []string{"600128", "7001234", "9988776"}, NumbersAfter("contract", text))
	assert.Equal(t, []string{"555555"}, NumbersAfter("Claim", text))
	assert.Nil(t, NumbersAfter("", text))
}

func TestNumberPatternCompiledOnce(t *testing.T) {
	assert.Same(t, numberPattern("contract"), numberPattern("CONTRACT"))
	assert.Same(t, numberPattern(" Policy"[1:]), numberPattern("policy"))
	assert.NotSame(t, numberPattern("contract"), numberPattern("claim"))

	text := "Policy # 4455667\npolicy 12"
	for i := 0; i < 3; i++ {
		assert.Equal(t, []string{"4455667"}, NumbersAfter("POLICY", text))
	}
}

func TestNumberFieldIsStringEquality(t *testing.T) {
	text := "Claim: 0012345678"
	assert.True(t, NumberField("claim", "0012345678", text))
	assert.False(t, NumberField("claim", "12345678", text))
	assert.False(t, NumberField("claim", "", text))
	assert.False(t, NumberField("contract", "0012345678", text))
}

func TestNumberFieldPerLine(t *testing.T) {
	// the keyword and the digits must share a line
	assert.False(t, NumberField("contract", "600128", "Contract\n600128"))
}

func TestDealerValues(t *testing.T) {
	text := "Dealer: Acme Motors, 600128.\nDEALERSHIP ; Best Cars Inc #42\nDealer Name: Zeta Autos"
	assert.Equal(t, []string{"Acme Motors", "Best Cars Inc", "Zeta Autos"}, DealerValues(text))
}

func TestDealerField(t *testing.T) {
	text := "Invoice\nDealer: Acme Motors 12345\nContract 600128"
	assert.True(t, DealerField("acme", text))
	assert.True(t, DealerField("Acme Motors", text))
	assert.False(t, DealerField("Zeta", text))
	assert.False(t, DealerField("", text))
}

func TestKeywords(t *testing.T) {
	text := "This CONTRACT covers the claim"
	assert.Equal(t, []string{"claim", "Contract"}, Keywords(text, []string{"claim", "INVOICE", "Contract"}))
	assert.Empty(t, Keywords(text, []string{"vin"}))
	assert.True(t, Contains(text, "covers THE"))
	assert.False(t, Contains(text, ""))
}
