package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("Sup3rSecret")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "Sup3rSecret", hash)

	assert.True(t, Verify("Sup3rSecret", hash))
	assert.False(t, Verify("wrong-password", hash))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Passw0rd", false},
		{"too short", "Pw1", true},
		{"no uppercase", "passw0rd", true},
		{"no lowercase", "PASSW0RD", true},
		{"no number", "Password", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.password, nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
