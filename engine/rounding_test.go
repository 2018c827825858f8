package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/AaryanSoni0610/bulliondesk/engine"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFormatMoney_TenRupeeGrid(t *testing.T) {
	// GIVEN: whole-rupee amounts
	// THEN: the last digit snaps down for 0..5 and up for 6..9

	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"124", "120"},
		{"125", "120"}, // 5 rounds down, the boundary is at 6
		{"126", "130"},
		{"12345", "12340"},
		{"12346", "12350"},
		{"40000", "40000"},
		{"151970", "151970"},
	}
	for _, tc := range cases {
		got := engine.FormatMoney(dec(tc.in))
		assert.True(t, got.Equal(dec(tc.want)), "FormatMoney(%s) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestFormatMoney_FractionalClimbsFirst(t *testing.T) {
	// GIVEN: amounts with a fractional part
	// WHEN: formatting
	// THEN: the amount first rounds up to the next rupee, then snaps to ten

	cases := []struct {
		in   string
		want string
	}{
		{"100.5", "100"},  // 100.5 -> 101 -> last digit 1 -> 100
		{"105.2", "110"},  // 105.2 -> 106 -> last digit 6 -> 110
		{"99.01", "100"},  // 99.01 -> 100 -> 100
		{"115.0001", "120"},
	}
	for _, tc := range cases {
		got := engine.FormatMoney(dec(tc.in))
		assert.True(t, got.Equal(dec(tc.want)), "FormatMoney(%s) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestFormatMoney_NegativeUnchanged(t *testing.T) {
	// Negative amounts are invalid input and pass through untouched.
	in := dec("-123.45")
	assert.True(t, engine.FormatMoney(in).Equal(in))
}

func TestFormatPureGold(t *testing.T) {
	// Pure gold reports to the nearest 0.010 g; the truncated third decimal
	// digit carries up only from 8.

	cases := []struct {
		in   string
		want string
	}{
		{"23.3875", "23.380"}, // 25 g at 93.55 touch
		{"24.3282", "24.330"}, // 26 g at 93.57 touch
		{"23.388", "23.390"},
		{"23.389", "23.390"},
		{"23.3899", "23.390"},
		{"10", "10"},
		{"0.007", "0"},
		{"0.008", "0.010"},
	}
	for _, tc := range cases {
		got := engine.FormatPureGold(dec(tc.in))
		assert.True(t, got.Equal(dec(tc.want)), "FormatPureGold(%s) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestFormatPureSilver_Buckets(t *testing.T) {
	// The three buckets are asymmetric: 0.000-0.399 -> .0,
	// 0.400-0.898 -> .5, 0.899+ -> next gram.

	cases := []struct {
		in   string
		want string
	}{
		{"386.9782", "387"}, // 526 g at 73.57 touch
		{"386.399", "386"},
		{"386.3999", "386.5"}, // above the .399 boundary
		{"386.4", "386.5"},
		{"386.898", "386.5"},
		{"386.899", "387"},
		{"386", "386"},
		{"0.95", "1"},
	}
	for _, tc := range cases {
		got := engine.FormatPureSilver(dec(tc.in))
		assert.True(t, got.Equal(dec(tc.want)), "FormatPureSilver(%s) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestFormatPureSilver_NegativeKeepsSign(t *testing.T) {
	// Rupu silver-return can go net negative; the buckets apply to the
	// magnitude and the sign is restored.
	got := engine.FormatPureSilver(dec("-0.5"))
	assert.True(t, got.Equal(dec("-0.5")), "got %s", got)

	got = engine.FormatPureSilver(dec("-386.95"))
	assert.True(t, got.Equal(dec("-387")), "got %s", got)
}
