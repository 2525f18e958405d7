package auth

import "testing"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateClientToken("client-123")
	if err != nil {
		t.Fatalf("GenerateClientToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.ClientID != "client-123" {
		t.Errorf("Expected client ID client-123, got %s", claims.ClientID)
	}
	if claims.Role != "client" {
		t.Errorf("Expected role client, got %s", claims.Role)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	if _, err := ValidateToken("not-a-token"); err == nil {
		t.Error("Expected garbage token to be rejected")
	}
}
