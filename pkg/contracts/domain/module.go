package domain

// ModuleSource identifies which registry generation a module record was
// resolved from.
type ModuleSource string

const (
	// ModuleSourceCurrent is the relational module table.
	ModuleSourceCurrent ModuleSource = "current"
	// ModuleSourceLegacy is the older taxonomy-style record set.
	ModuleSourceLegacy ModuleSource = "legacy"
)

// Module represents a named, licensable feature unit. Its identity for
// entitlement-matching purposes is the slug; view parameters are secondary
// lookup keys used by callers that know a UI route name rather than the
// canonical slug.
type Module struct {
	Slug        string       `json:"slug" db:"slug" validate:"required"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description,omitempty" db:"description"`
	ViewParams  []string     `json:"view_params,omitempty" db:"view_params"`
	Category    string       `json:"category,omitempty" db:"category"`
	Core        bool         `json:"is_core" db:"is_core"`
	Active      bool         `json:"is_active" db:"is_active"`
	Source      ModuleSource `json:"source,omitempty" db:"-"`
}

// AnswersTo reports whether the module is reachable via the given view
// parameter.
func (m *Module) AnswersTo(viewParam string) bool {
	for _, vp := range m.ViewParams {
		if vp == viewParam {
			return true
		}
	}
	return false
}
