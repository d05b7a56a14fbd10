package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid email", "test@example.com", false},
		{"Valid email with subdomain", "user@mail.example.com", false},
		{"Valid email with plus", "user+tag@example.com", false},
		{"Uppercase is normalized", " User@Example.COM ", false},
		{"Invalid email - no @", "testexample.com", true},
		{"Invalid email - no domain", "test@", true},
		{"Invalid email - no local part", "@example.com", true},
		{"Invalid email - bare host", "test@localhost", true},
		{"Invalid email - with display name", "Test <test@example.com>", true},
		{"Invalid email - empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.NoError(t, ValidatePassword("long-enough"))
	assert.ErrorIs(t, ValidatePassword(string(make([]byte, 129))), ErrPasswordTooLong)
}

func TestClampImportMax(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 50},
		{"abc", 50},
		{"500", 50},
		{"50", 50},
		{"10", 10},
		{"1", 1},
		{"0", 1},
		{"-7", 1},
	}

	for _, tt := range tests {
		t.Run("max="+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampImportMax(tt.raw))
		})
	}
}

func TestTemplateQueryNormalize(t *testing.T) {
	t.Run("默认值", func(t *testing.T) {
		q := TemplateQuery{}.Normalize()
		assert.Equal(t, 1, q.Page)
		assert.Equal(t, 12, q.Limit)
		assert.Equal(t, 0, q.Offset())
	})

	t.Run("上限 50", func(t *testing.T) {
		q := TemplateQuery{Page: 3, Limit: 500}.Normalize()
		assert.Equal(t, 50, q.Limit)
		assert.Equal(t, 100, q.Offset())
	})
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 3, TotalPages(25, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 0, TotalPages(0, 10))
}

func TestBrandSlug(t *testing.T) {
	assert.Equal(t, "nike", BrandSlug("nike.com"))
	assert.Equal(t, "zara", BrandSlug("www.zara.co.uk"))
	assert.Equal(t, "localhost", BrandSlug("LocalHost"))
}

func TestGmailTokenExpired(t *testing.T) {
	now := mustTime("2024-05-01T10:00:00Z")
	assert.True(t, (&GmailToken{Expiry: now}).Expired(now))
	assert.True(t, (&GmailToken{}).Expired(now))
	assert.False(t, (&GmailToken{Expiry: now.Add(1)}).Expired(now))
}

func mustTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return ts
}
