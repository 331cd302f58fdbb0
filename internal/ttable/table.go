package ttable

import "encoding/json"

// State tracks a table through one processing pass.
type State int

const (
	StateEmpty State = iota
	StateAccumulating
	StateFinalized
	StatePublished
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateAccumulating:
		return "accumulating"
	case StateFinalized:
		return "finalized"
	case StatePublished:
		return "published"
	case StateRejected:
		return "rejected"
	default:
		return "empty"
	}
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StatePublished || s == StateRejected
}

// Table is the set of rows collected under one title during a pass.
type Table struct {
	Title string
	Rows  []Row
	State State
}

// Payload is the published shape of a table.
type Payload struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Payload returns the table with the fixed schema attached.
func (t *Table) Payload() Payload {
	rows := make([]Row, len(t.Rows))
	copy(rows, t.Rows)
	return Payload{Columns: Columns(), Rows: rows}
}

// MarshalPayload encodes the table's payload as JSON.
func (t *Table) MarshalPayload() ([]byte, error) {
	return json.Marshal(t.Payload())
}

// DecodePayload parses a published payload. Rows missing from the JSON
// decode as an empty slice.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, err
	}
	if p.Rows == nil {
		p.Rows = []Row{}
	}
	return p, nil
}
