package model

import "fmt"

// ZoneType classifies a delimited span by who may see it.
// The set is closed: a document can only carry the six types below.
type ZoneType string

const (
	ZonePassThrough ZoneType = "pass_through"
	ZonePrivate     ZoneType = "private"
	ZonePublic      ZoneType = "public"
	ZoneAction      ZoneType = "action"
	ZoneQuestion    ZoneType = "question"
	ZoneBenchmark   ZoneType = "benchmark"
)

// Delimiter is the opening/closing token pair that marks a zone.
type Delimiter struct {
	Open  string
	Close string
}

// ZoneTypes lists every zone type in scan order.
var ZoneTypes = []ZoneType{
	ZonePassThrough,
	ZonePrivate,
	ZonePublic,
	ZoneAction,
	ZoneQuestion,
	ZoneBenchmark,
}

// Delimiters maps each zone type to its literal tokens. These literals are a
// compatibility contract with existing annotated documents and must not change.
var Delimiters = map[ZoneType]Delimiter{
	ZonePassThrough: {Open: "<#.", Close: "#.>"},
	ZonePrivate:     {Open: "<.", Close: ".>"},
	ZonePublic:      {Open: "<$.", Close: "$.>"},
	ZoneAction:      {Open: "<@.", Close: "@.>"},
	ZoneQuestion:    {Open: "<?.", Close: "?.>"},
	ZoneBenchmark:   {Open: "<.bm", Close: ".bm>"},
}

// AlwaysHidden reports whether a zone type is removed from every projection.
// Private, question and benchmark zones exist to be excluded; no policy
// can keep them.
func (t ZoneType) AlwaysHidden() bool {
	switch t {
	case ZonePrivate, ZoneQuestion, ZoneBenchmark:
		return true
	default:
		return false
	}
}

// Valid reports whether t is one of the six known zone types.
func (t ZoneType) Valid() bool {
	_, ok := Delimiters[t]
	return ok
}

// Wrap returns content enclosed in the zone's delimiters, one per line.
func (t ZoneType) Wrap(content string) string {
	d := Delimiters[t]
	return d.Open + "\n" + content + "\n" + d.Close
}

// ParseZoneType maps a name to a ZoneType. Accepts the canonical names and
// the short aliases used in configuration files ("pass", "bm").
func ParseZoneType(s string) (ZoneType, error) {
	switch s {
	case "pass_through", "pass-through", "passthrough", "pass":
		return ZonePassThrough, nil
	case "private":
		return ZonePrivate, nil
	case "public":
		return ZonePublic, nil
	case "action":
		return ZoneAction, nil
	case "question":
		return ZoneQuestion, nil
	case "benchmark", "bm":
		return ZoneBenchmark, nil
	default:
		return "", fmt.Errorf("unknown zone type %q", s)
	}
}

// Zone is one recognized span in a document. Start and End are byte offsets
// into the original document, so doc[Start:End] == Raw always holds.
type Zone struct {
	Type  ZoneType `json:"type"`
	Inner string   `json:"inner"`
	Start int      `json:"start"`
	End   int      `json:"end"`
	Raw   string   `json:"raw"`
}

// Len returns the byte length of the raw span including delimiters.
func (z Zone) Len() int {
	return z.End - z.Start
}
