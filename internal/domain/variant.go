package domain

// Variant is the arm a visitor has been assigned to.
type Variant int

const (
	Unassigned Variant = iota
	Control
	Treatment
)

func (v Variant) String() string {
	switch v {
	case Control:
		return "control"
	case Treatment:
		return "treatment"
	default:
		return "unassigned"
	}
}
