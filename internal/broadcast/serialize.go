package broadcast

import "encoding/json"

// Serialize renders a frame payload to bytes using encoding/json, relying on
// the domain types' own json.Marshaler implementations (piece.Rank,
// piece.Color, piece.Type) to emit enum names rather than ordinals, and on
// time.Time's default RFC3339 formatting for any timestamp field. This is
// the "deep, schema-defined serializer" spec.md calls for: the schema lives
// on the domain types themselves, the same way the teacher's Card type
// defines its own MarshalJSON instead of a central reflection-based
// encoder.
func Serialize(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
