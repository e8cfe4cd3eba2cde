package lib

// Entity labels assigned by the recognisers and reassigned by the cleaner.
const (
	LabelDisease     = "DISEASE"
	LabelMedication  = "MEDICATION"
	LabelObservation = "OBSERVATION"
	LabelChemical    = "CHEMICAL"
	LabelContext     = "CONTEXT"
	LabelGeneral     = "GENERAL"
	LabelEntity      = "ENTITY"
)

// Confidence is a coarse low/medium/high marker, not a calibrated probability.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Entity is a labelled text span within one section of a document.
type Entity struct {
	Text       string     `json:"text"`
	Label      string     `json:"label"`
	StartChar  int        `json:"start_char"`
	EndChar    int        `json:"end_char"`
	Confidence Confidence `json:"confidence,omitempty"`
}

// Overlaps reports whether the character spans of two entities intersect.
func (e Entity) Overlaps(other Entity) bool {
	return e.StartChar < other.EndChar && other.StartChar < e.EndChar
}

// LinkedEntity is an entity with an optional ontology link attached. When no
// vocabulary term cleared the similarity threshold, LinkedCode and Display are
// empty but Vocabulary and Score are retained for audit. Score marshals under
// the "confidence" key on the wire.
type LinkedEntity struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	StartChar  int     `json:"start_char"`
	EndChar    int     `json:"end_char"`
	LinkedCode string  `json:"linked_code,omitempty"`
	Vocabulary string  `json:"vocabulary,omitempty"`
	Display    string  `json:"display,omitempty"`
	Score      float64 `json:"confidence"`
}

// Linked reports whether a code was attached.
func (le LinkedEntity) Linked() bool {
	return le.LinkedCode != ""
}
