package tracing

// Namer decides the span name reported for an operation kind and description.
type Namer interface {
	Name(op, description string) string
}

// OpNamer names spans after their operation kind ("bt.connection").
type OpNamer struct{}

// Name returns op unchanged.
func (OpNamer) Name(op, _ string) string {
	return op
}

// DescriptionNamer names spans after their description, falling back to the
// operation kind when the description is empty.
type DescriptionNamer struct{}

// Name returns description, or op if description is empty.
func (DescriptionNamer) Name(op, description string) string {
	if description == "" {
		return op
	}

	return description
}

// NamerFor returns the namer registered under name: "op" or "description".
// Unknown names fall back to OpNamer.
func NamerFor(name string) Namer {
	if name == "description" {
		return DescriptionNamer{}
	}

	return OpNamer{}
}
