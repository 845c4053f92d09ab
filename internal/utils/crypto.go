// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"sort"

	"github.com/google/uuid"
)

func GenerateRandomString(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

func HashString(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}

// ItemDigest is the canonical projection of an order item used for the
// tamper-detection hash.
type ItemDigest struct {
	ProductID uuid.UUID `json:"product_id"`
	ListingID uuid.UUID `json:"listing_id"`
	UnitPrice float64   `json:"unit_price"`
	Quantity  int       `json:"quantity"`
}

// HashOrderItems computes a content hash over the resolved item set. Items
// are sorted by (product, listing) first so line ordering never changes the
// hash. Used for drift detection, not identity.
func HashOrderItems(items []ItemDigest) string {
	sorted := make([]ItemDigest, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ProductID != sorted[j].ProductID {
			return sorted[i].ProductID.String() < sorted[j].ProductID.String()
		}
		return sorted[i].ListingID.String() < sorted[j].ListingID.String()
	})

	payload, _ := json.Marshal(sorted)
	return HashString(string(payload))
}
