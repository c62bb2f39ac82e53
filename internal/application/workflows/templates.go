package workflows

// TemplateStep is one pre-filled step of a template.
type TemplateStep struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// Template is a canned workflow shape the builder offers as a starting point.
type Template struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Steps       []TemplateStep `json:"steps"`
}

// Templates returns the built-in workflow templates. The set is fixed.
func Templates() []Template {
	return []Template{
		{
			ID:          "simple",
			Name:        "Simple Approval",
			Description: "Single-step approval for routine requests",
			Steps: []TemplateStep{
				{Name: "Manager Approval", Required: true},
			},
		},
		{
			ID:          "sequential",
			Name:        "Sequential Approval",
			Description: "Multi-level approval chain for significant requests",
			Steps: []TemplateStep{
				{Name: "Direct Manager", Required: true},
				{Name: "Department Head", Required: true},
				{Name: "Executive Approval", Required: true},
			},
		},
		{
			ID:          "parallel",
			Name:        "Parallel Review",
			Description: "Independent reviews that can happen side by side",
			Steps: []TemplateStep{
				{Name: "Technical Review", Required: true},
				{Name: "Budget Review", Required: false},
			},
		},
	}
}

// Departments the builder offers for categorizing workflows.
func Departments() []string {
	return []string{"Engineering", "Finance", "Human Resources", "Marketing", "Operations", "Sales", "Legal"}
}

// Types the builder offers for categorizing workflows.
func Types() []string {
	return []string{"Purchase Request", "Expense Report", "Time Off", "Document Review", "Budget Approval", "Other"}
}
