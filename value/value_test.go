package value

import (
	"encoding/json"
	"testing"
)

func TestDecimalRoundTripPreservesScale(t *testing.T) {
	v, err := NewDecimalString("1.2300")
	if err != nil {
		t.Fatalf("NewDecimalString: %v", err)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != `"1.2300"` {
		t.Fatalf("got %s, want \"1.2300\"", raw)
	}

	parsed, err := ParseJSON(Decimal, raw)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if parsed.String() != "1.2300" {
		t.Fatalf("round-trip lost scale: got %s", parsed.String())
	}
}

func TestIntPassesThroughAsNumber(t *testing.T) {
	v := NewInt(7)
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != "7" {
		t.Fatalf("got %s, want unquoted 7", raw)
	}
}

func TestRealNaNBecomesNull(t *testing.T) {
	v := NewReal(nanValue())
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != "null" {
		t.Fatalf("got %s, want null", raw)
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestParseJSONDecimalAcceptsBareNumber(t *testing.T) {
	v, err := ParseJSON(Decimal, json.RawMessage("1.5"))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if v.Type != Decimal {
		t.Fatalf("expected Decimal type, got %s", v.Type)
	}
}

func TestCoerceFromDriverDecimalScalesIntegers(t *testing.T) {
	v, err := CoerceFromDriver(Decimal, int64(1234), 2)
	if err != nil {
		t.Fatalf("CoerceFromDriver: %v", err)
	}
	if v.DecimalV.String() != "12.34" {
		t.Fatalf("got %s, want 12.34", v.DecimalV.String())
	}
}
