// Package index defines the vector-index contract shared by all backends.
package index

import (
	"fmt"

	"github.com/google/uuid"
)

// negativePrefix namespaces negative-sample point ids so a text can appear
// both as an utterance and as another route's counter-example.
const negativePrefix = "negative:"

// PointID returns the deterministic id for a (route_id, utterance) pair.
// Independent sync runs agree on identity without coordination, so
// re-embedding the same utterance upserts in place.
func PointID(routeID int, utterance string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(fmt.Sprintf("%d:%s", routeID, utterance))).String()
}

// NegativePointID returns the deterministic id for a negative sample.
func NegativePointID(routeID int, sample string) string {
	return PointID(routeID, negativePrefix+sample)
}

// Payload is the metadata carried by every stored point.
type Payload struct {
	routeID           int
	routeName         string
	utterance         string
	negative          bool
	negativeThreshold float64
}

// NewPayload creates a positive-utterance payload.
func NewPayload(routeID int, routeName, utterance string) Payload {
	return Payload{routeID: routeID, routeName: routeName, utterance: utterance}
}

// NewNegativePayload creates a negative-sample payload carrying the veto
// threshold that applied when the point was written.
func NewNegativePayload(routeID int, routeName, sample string, threshold float64) Payload {
	return Payload{
		routeID:           routeID,
		routeName:         routeName,
		utterance:         sample,
		negative:          true,
		negativeThreshold: threshold,
	}
}

// RouteID returns the owning route id.
func (p Payload) RouteID() int { return p.routeID }

// RouteName returns the owning route name.
func (p Payload) RouteName() string { return p.routeName }

// Utterance returns the stored text.
func (p Payload) Utterance() string { return p.utterance }

// Negative reports whether the point is a counter-example.
func (p Payload) Negative() bool { return p.negative }

// NegativeThreshold returns the veto threshold for negative points.
func (p Payload) NegativeThreshold() float64 { return p.negativeThreshold }

// Point is a vector plus payload under a deterministic id.
type Point struct {
	id      string
	vector  []float64
	payload Payload
}

// NewPoint creates a Point.
func NewPoint(id string, vector []float64, payload Payload) Point {
	return Point{id: id, vector: vector, payload: payload}
}

// ID returns the point id.
func (p Point) ID() string { return p.id }

// Vector returns the embedding vector.
func (p Point) Vector() []float64 { return p.vector }

// Payload returns the point metadata.
func (p Point) Payload() Payload { return p.payload }

// StoredPoint is a point's identity and payload without its vector,
// as returned by Scroll for sync diffing.
type StoredPoint struct {
	id      string
	payload Payload
}

// NewStoredPoint creates a StoredPoint.
func NewStoredPoint(id string, payload Payload) StoredPoint {
	return StoredPoint{id: id, payload: payload}
}

// ID returns the point id.
func (s StoredPoint) ID() string { return s.id }

// Payload returns the point metadata.
func (s StoredPoint) Payload() Payload { return s.payload }

// Match is a scored search hit.
type Match struct {
	id      string
	score   float64
	payload Payload
}

// NewMatch creates a Match.
func NewMatch(id string, score float64, payload Payload) Match {
	return Match{id: id, score: score, payload: payload}
}

// ID returns the matched point id.
func (m Match) ID() string { return m.id }

// Score returns the cosine similarity of the hit.
func (m Match) Score() float64 { return m.score }

// Payload returns the matched point metadata.
func (m Match) Payload() Payload { return m.payload }
