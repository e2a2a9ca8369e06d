package memory

import (
	"encoding/json"
	"fmt"
)

// Buckets lists the persistence bucket names in ownership order. Durable
// backends store one JSON payload per bucket.
var Buckets = []string{
	"meets",
	"sessions",
	"events",
	"teams",
	"swimmers",
	"individual_entries",
	"relay_entries",
	"relay_assignments",
}

func (s *Snapshot) bucketTarget(bucket string) (any, bool) {
	switch bucket {
	case "meets":
		return &s.Meets, true
	case "sessions":
		return &s.Sessions, true
	case "events":
		return &s.Events, true
	case "teams":
		return &s.Teams, true
	case "swimmers":
		return &s.Swimmers, true
	case "individual_entries":
		return &s.IndividualEntries, true
	case "relay_entries":
		return &s.RelayEntries, true
	case "relay_assignments":
		return &s.RelayAssignments, true
	default:
		return nil, false
	}
}

// EncodeBucket marshals a single bucket of the snapshot.
func (s Snapshot) EncodeBucket(bucket string) ([]byte, error) {
	target, ok := s.bucketTarget(bucket)
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	data, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", bucket, err)
	}
	return data, nil
}

// DecodeBucket unmarshals payload into the named bucket. Unknown buckets are
// ignored so older databases with retired buckets still load.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	target, ok := s.bucketTarget(bucket)
	if !ok {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
