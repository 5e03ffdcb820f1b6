package submit

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sync"

	"funnel-orders/internal/models"
)

// InFlightRegistry is the process-wide set of submission fingerprints
// currently being processed. It exists to stop rapid double-click style
// duplicates within a session: advisory de-duplication, not an exactly-once
// guarantee. Constructed once at startup and injected into the coordinator.
type InFlightRegistry struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{keys: make(map[string]struct{})}
}

// TryAcquire inserts the fingerprint, reporting false when an identical
// submission is already in flight.
func (r *InFlightRegistry) TryAcquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.keys[key]; exists {
		return false
	}
	r.keys[key] = struct{}{}
	return true
}

// Release removes the fingerprint. Safe to call for keys never acquired.
func (r *InFlightRegistry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, key)
}

// Contains reports whether the fingerprint is currently in flight.
func (r *InFlightRegistry) Contains(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.keys[key]
	return exists
}

// Len returns the number of in-flight submissions.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// fingerprintFields is the canonical identity of "the same logical
// submission". Field order is fixed by the struct, so the digest is stable.
type fingerprintFields struct {
	Products      []string `json:"products"`
	Email         string   `json:"email"`
	ParentOrderID string   `json:"parentOrderId"`
	CustomerID    string   `json:"customerId"`
}

// Fingerprint derives the de-duplication key for an intent.
func Fingerprint(intent *models.OrderIntent) string {
	products := make([]string, 0, len(intent.LineItems))
	for _, item := range intent.LineItems {
		products = append(products, item.ProductID)
	}

	data, _ := json.Marshal(fingerprintFields{
		Products:      products,
		Email:         intent.Customer.Email,
		ParentOrderID: intent.ParentOrderID,
		CustomerID:    intent.CustomerID,
	})

	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
