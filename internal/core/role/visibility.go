package role

// Field keys of the organizational hierarchy inputs on the user form.
const (
	FieldProjectManager   = "project_manager"
	FieldAssistantManager = "assistant_manager"
	FieldQualityAnalyst   = "quality_analyst"
	FieldTenure           = "tenure"
)

// HierarchyFields is the fixed iteration order of the visibility map.
var HierarchyFields = []string{FieldProjectManager, FieldAssistantManager, FieldQualityAnalyst, FieldTenure}

type FieldRule struct {
	Visible  bool `json:"visible"`
	Required bool `json:"required"`
}

type FieldVisibility map[string]FieldRule

var (
	shown  = FieldRule{Visible: true, Required: true}
	hidden = FieldRule{}
)

func rules(pm, am, qa, tenure FieldRule) FieldVisibility {
	return FieldVisibility{
		FieldProjectManager:   pm,
		FieldAssistantManager: am,
		FieldQualityAnalyst:   qa,
		FieldTenure:           tenure,
	}
}

// ResolveVisibility maps the selected role on the user form to which
// hierarchy fields are rendered and enforced. Empty input and unknown ids
// take the Super Admin / Admin layout.
func ResolveVisibility(raw string) FieldVisibility {
	r, _ := Parse(raw)
	return VisibilityFor(r)
}

func VisibilityFor(r Role) FieldVisibility {
	switch r {
	case Agent:
		return rules(shown, shown, shown, shown)
	case QAAgent:
		return rules(shown, shown, hidden, hidden)
	case AssistantManager:
		return rules(shown, hidden, hidden, hidden)
	case ProjectManager:
		return rules(hidden, hidden, hidden, hidden)
	default:
		return rules(shown, shown, shown, hidden)
	}
}

func (v FieldVisibility) Visible(field string) bool {
	return v[field].Visible
}

func (v FieldVisibility) Required(field string) bool {
	return v[field].Required
}
