package validate

import "testing"

func TestEmail(t *testing.T) {
	valid := []string{"user@example.com", "a+b_c.d-e@host", "x@y"}
	for _, v := range valid {
		if !Email(v) {
			t.Errorf("Email(%q) = false, want true", v)
		}
	}
	invalid := []string{"", "user", "user@", "@host", "us er@host"}
	for _, v := range invalid {
		if Email(v) {
			t.Errorf("Email(%q) = true, want false", v)
		}
	}
}

func TestPassword(t *testing.T) {
	if Password("12345") {
		t.Error("five characters accepted")
	}
	if !Password("123456") {
		t.Error("six characters rejected")
	}
}

func TestName(t *testing.T) {
	if Name("   ") || Name("A") {
		t.Error("blank or single-character name accepted")
	}
	if !Name("Иван Петров") {
		t.Error("plain full name rejected")
	}
}

func TestPhone(t *testing.T) {
	valid := []string{"+79161234567", "79161234567", "+7 (916) 123-45-67"}
	for _, v := range valid {
		if !Phone(v) {
			t.Errorf("Phone(%q) = false, want true", v)
		}
	}
	invalid := []string{"", "12345", "phone", "+7916abc4567"}
	for _, v := range invalid {
		if Phone(v) {
			t.Errorf("Phone(%q) = true, want false", v)
		}
	}
}

func TestAddress(t *testing.T) {
	if Address("    a    ") {
		t.Error("single-character address accepted")
	}
	if !Address("Москва, Тверская 1") {
		t.Error("plain address rejected")
	}
}
