package auth_test

import (
	"testing"

	"github.com/Alia5/viistream/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestDeriveKey(t *testing.T) {
	type testCase struct {
		name        string
		password    string
		expectedKey []byte
		expectedErr error
	}
	testCases := []testCase{
		{
			name:        "Normal Password",
			password:    "password123",
			expectedKey: []byte{0x94, 0x50, 0x29, 0x55, 0x1, 0xd7, 0x3, 0xf, 0x4, 0x61, 0xf, 0x81, 0x6a, 0xdf, 0x43, 0x1c, 0xaf, 0x8f, 0xc8, 0x21, 0xd4, 0xc1, 0x2f, 0x2f, 0x21, 0x2c, 0x1b, 0xf8, 0x64, 0x46, 0x9, 0x82},
		},
		{
			name:        "Simple Password",
			password:    "1",
			expectedKey: []byte{0xfe, 0xdf, 0xdf, 0x4d, 0xab, 0xd2, 0x5d, 0x9f, 0xfd, 0x97, 0x96, 0xec, 0x76, 0xd2, 0xa2, 0xec, 0x2, 0x4f, 0xbf, 0xeb, 0x17, 0x8c, 0x6, 0x13, 0xed, 0x4f, 0x10, 0x9e, 0x4d, 0xef, 0xd1, 0xd2},
		},
		{
			name:        "empty password",
			password:    "",
			expectedErr: auth.ErrEmptyPassword,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			derivedKey, err := auth.DeriveKey(tc.password)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedKey, derivedKey)
		})
	}
}

func TestDeriveSessionKey(t *testing.T) {
	key := make([]byte, 32)
	serverNonce := make([]byte, 32)
	clientNonce := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
		serverNonce[i] = byte(i + 10)
		clientNonce[i] = byte(i + 20)
	}
	sessionKey := auth.DeriveSessionKey(key, serverNonce, clientNonce)
	assert.Len(t, sessionKey, 32)
	assert.Equal(t, sessionKey, auth.DeriveSessionKey(key, serverNonce, clientNonce))
	clientNonce[0] = 99
	assert.NotEqual(t, sessionKey, auth.DeriveSessionKey(key, serverNonce, clientNonce))
}
