package recogniser

import (
	"github.com/clinformatics/clindoc/lib"
)

// Client recognises entities in one section of text. Implementations must be
// safe to call once per section for the lifetime of a pipeline run.
type Client interface {
	Name() string
	Recognise(section string) ([]lib.Entity, error)
}
