package crypto

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestNewDefaultPassword(t *testing.T) {
	first, err := NewDefaultPassword()
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	second, err := NewDefaultPassword()
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if first == "" || first == second {
		t.Fatalf("expected distinct non-empty passwords")
	}
}
