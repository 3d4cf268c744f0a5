package util

import "testing"

func TestParseQty(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "thousand with space", input: "Mineral Water 1 000 btl", want: 1000},
		{name: "decimal comma", input: "Olive Oil 1,5 l", want: 1.5},
		{name: "decimal dot", input: "Olive Oil 1.5 l", want: 1.5},
		{name: "thousand dot", input: "Paper Cups 1.000 pcs", want: 1000},
		{name: "dimension and qty", input: "Garbage Bag 65x80 100 pcs", want: 100},
		{name: "japanese unit", input: "ミネラルウォーター５００ｍｌ 24本", want: 24},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := ParseQty(tc.input)
			if parsed.Qty == nil {
				t.Fatalf("qty is nil")
			}
			if *parsed.Qty != tc.want {
				t.Fatalf("got %v want %v", *parsed.Qty, tc.want)
			}
		})
	}
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		input string
		want  float64
	}{
		{input: "$1,234.50", want: 1234.5},
		{input: "USD 12.50", want: 12.5},
		{input: "¥1,000", want: 1000},
		{input: "12.5", want: 12.5},
	}
	for _, tc := range cases {
		got := ParseMoney(tc.input)
		if got == nil {
			t.Fatalf("%s: nil", tc.input)
		}
		if *got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.input, *got, tc.want)
		}
	}
	if ParseMoney("TBD") != nil {
		t.Fatalf("expected nil for non-numeric")
	}
}
