package redis

import "strings"

const namespace = "sf"

// Keyspace builds every key the service writes, all under the "sf" prefix.
// Empty parts are dropped so a missing scope cannot produce "sf::x".
type Keyspace struct{}

func (Keyspace) key(parts ...string) string {
	b := strings.Builder{}
	b.WriteString(namespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// IdempotencyKey holds a stored API response for replay.
func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.key("idempotency", scope, id)
}

// CartKey holds a session's serialized cart.
func (k Keyspace) CartKey(sessionID string) string { return k.key("cart", sessionID) }

// OrderDescriptorKey holds a created gateway order until it is verified.
func (k Keyspace) OrderDescriptorKey(orderID string) string {
	return k.key("order_descriptor", orderID)
}

// PaymentVerifiedKey is the exactly-once claim for a gateway order.
func (k Keyspace) PaymentVerifiedKey(orderID string) string {
	return k.key("payment_verified", orderID)
}

func (k Keyspace) LockKey(name string) string { return k.key("lock", name) }
