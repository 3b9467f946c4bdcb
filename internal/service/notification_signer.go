package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"value-ledger/internal/core/domain"
)

// signatureScheme prefixes every notification signature header value.
const signatureScheme = "v1="

// HMACNotificationSigner implements ports.NotificationSigner. The MAC covers
// the event type, event id, send timestamp and a SHA-256 digest of the body:
//
//	v1|EVENT_TYPE|EVENT_ID|TIMESTAMP|hex(sha256(body))
type HMACNotificationSigner struct{}

func NewHMACNotificationSigner() *HMACNotificationSigner {
	return &HMACNotificationSigner{}
}

// SignDelivery returns the X-Ledger-Signature value for delivery.
func (s *HMACNotificationSigner) SignDelivery(secret string, delivery *domain.NotificationDelivery, timestamp int64) string {
	return signatureScheme + hex.EncodeToString(s.mac(secret, delivery, timestamp))
}

// VerifyDelivery checks a signature header value in constant time.
func (s *HMACNotificationSigner) VerifyDelivery(secret string, delivery *domain.NotificationDelivery, timestamp int64, signature string) bool {
	encoded, ok := strings.CutPrefix(signature, signatureScheme)
	if !ok {
		return false
	}
	got, err := hex.DecodeString(encoded)
	if err != nil {
		return false
	}
	return hmac.Equal(got, s.mac(secret, delivery, timestamp))
}

func (s *HMACNotificationSigner) mac(secret string, delivery *domain.NotificationDelivery, timestamp int64) []byte {
	digest := sha256.Sum256([]byte(delivery.Payload))

	var b strings.Builder
	b.WriteString("v1|")
	b.WriteString(string(delivery.EventType))
	b.WriteByte('|')
	b.WriteString(delivery.EventID)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteByte('|')
	b.WriteString(hex.EncodeToString(digest[:]))

	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(b.String()))
	return m.Sum(nil)
}
