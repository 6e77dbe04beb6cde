package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		ok    bool
	}{
		{"valid", "user@example.com", true},
		{"subdomain", "a.b@mail.example.co.uk", true},
		{"plus tag", "user+tag@example.com", true},
		{"empty", "", false},
		{"no at", "userexample.com", false},
		{"no tld", "user@example", false},
		{"spaces", "user @example.com", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Email(tc.email)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "SecurePass123", true},
		{"minimal", "Aa345678", true},
		{"too short", "Aa1", false},
		{"no upper", "secure123", false},
		{"no lower", "SECURE123", false},
		{"no digit", "SecurePass", false},
		{"empty", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Password("password", tc.password)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestOTP(t *testing.T) {
	require.NoError(t, OTP("123456"))
	require.Error(t, OTP("12345"))
	require.Error(t, OTP("1234567"))
	require.Error(t, OTP("12345a"))
	require.Error(t, OTP(""))
}

func TestZip(t *testing.T) {
	require.NoError(t, Zip("12345"))
	require.NoError(t, Zip("123456"))
	require.NoError(t, Zip("12345-6789"))
	require.Error(t, Zip("1234"))
	require.Error(t, Zip("abcde"))
	require.Error(t, Zip(""))
}

func TestPhone(t *testing.T) {
	require.NoError(t, Phone("phone", "+1234567890"))
	require.NoError(t, Phone("phone", "(555) 123-4567"))
	require.Error(t, Phone("phone", "12ab34"))
	require.Error(t, Phone("phone", "123"))
	require.Error(t, Phone("phone", ""))
}

func TestName(t *testing.T) {
	require.NoError(t, Name("first_name", "Al"))
	require.Error(t, Name("first_name", "A"))
	require.Error(t, Name("first_name", "  "))
}

func TestErrorIdentifiesField(t *testing.T) {
	err := Email("")
	var ve *Error
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "email", ve.Field)
	require.Contains(t, err.Error(), "email")
}
