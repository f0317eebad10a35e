package main

import "testing"

func TestIsValidEthAddress(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"0x52908400098527886E0F7030069857D2E4169EE7", true},
		{"0xde709f2102306220921060314715629080e2fb77", true},
		{"0X52908400098527886E0F7030069857D2E4169EE7", true},
		{"0x123", false},
		{"52908400098527886E0F7030069857D2E4169EE7", false},
		{"0xZ2908400098527886E0F7030069857D2E4169EE7", false},
	}
	for _, c := range cases {
		if got := isValidEthAddress(c.addr); got != c.want {
			t.Fatalf("isValidEthAddress(%q) = %v, want %v", c.addr, got, c.want)
		}
	}
}
