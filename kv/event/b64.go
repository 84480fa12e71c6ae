package event

import "encoding/base64"

// EncodeName base64url-encodes an event or queue name.
//
// The URL-safe alphabet (A-Z a-z 0-9 - _) is used with no padding, so
// encoded names never contain the ":" key delimiter.
func EncodeName(name string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name))
}

// DecodeName reverses EncodeName. It returns false when the input is not
// valid unpadded base64url.
func DecodeName(encoded string) (string, bool) {
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}

	return string(decoded), true
}
