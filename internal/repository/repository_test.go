package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestConfig_GetDatabaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected string
	}{
		{
			name:     "Defaults ssl mode",
			cfg:      Config{Host: "db", Port: "5432", User: "quest", Password: "secret", Name: "ledger"},
			expected: "postgres://quest:secret@db:5432/ledger?sslmode=disable",
		},
		{
			name:     "Explicit ssl mode",
			cfg:      Config{Host: "db", Port: "6432", User: "quest", Password: "secret", Name: "ledger", SSLMode: "require"},
			expected: "postgres://quest:secret@db:6432/ledger?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.GetDatabaseURL())
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(errors.Wrap(&pgconn.PgError{Code: "23505"}, "insert user")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
