package hasher

import "testing"

func TestHash_Deterministic(t *testing.T) {
	if Hash("4821") != Hash("4821") {
		t.Fatal("hash must be deterministic")
	}
}

func TestHash_DifferentInputs(t *testing.T) {
	if Hash("0000") == Hash("0001") {
		t.Fatal("different inputs should not produce the same hash")
	}
}

func TestHash_KnownVector(t *testing.T) {
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := Hash("hello"); got != want {
		t.Fatalf("unexpected hash: got %s want %s", got, want)
	}
}

func TestVerifyConstantTime(t *testing.T) {
	stored := Hash("7351")
	if !VerifyConstantTime("7351", stored) {
		t.Fatal("correct pin must verify")
	}
	if VerifyConstantTime("7352", stored) {
		t.Fatal("wrong pin must not verify")
	}
	if VerifyConstantTime("7351", "not-a-digest") {
		t.Fatal("malformed stored hash must not verify")
	}
}

func BenchmarkHash(b *testing.B) {
	for b.Loop() {
		_ = Hash("4821")
	}
}
