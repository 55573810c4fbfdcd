// Package audit records who touched the station and device registry,
// and from where. Dispatch state transitions are not audited here; the
// escalation history on each alert is its own record.
package audit

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Entry is one registry action: tenant, actor, the action verb
// ("register.station", "register.device", ...), and the resource it hit.
// StationID is set when the action targets a specific station. Metadata
// carries the request payload and PayloadDigest a SHA256 over it, so a
// tampered log line no longer matches its digest.
type Entry struct {
	ID            string
	TenantID      string
	Actor         string
	Role          string
	Action        string
	ResourceType  string
	ResourceID    string
	StationID     string
	Metadata      json.RawMessage
	PayloadDigest string
	IP            string
	UserAgent     string
	CreatedAt     time.Time
}

// Logger persists audit entries. Implementations must not fail the
// request they are auditing.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewID returns a random entry id.
func NewID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "aud-" + hex.EncodeToString(buf)
}

// DigestJSON hex-encodes the SHA256 of a payload, or "" for an empty one.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
