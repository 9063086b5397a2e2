package model

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
)

const (
	ValidationRuleRequired   = "required"
	ValidationRuleOptional   = "optional"
	ValidationRuleMin        = "min"
	ValidationRuleMax        = "max"
	ValidationRuleMinLength  = "minLength"
	ValidationRuleMaxLength  = "maxLength"
	ValidationRuleIPAddress  = "ipAddress"
	ValidationRuleMacAddress = "macAddress"
	ValidationRuleUUID       = "uuid"
)

// ValidationRule represents a single validation constraint applied to a field.
// Numeric bounds and length limits encode their threshold in
// Params["value"].
type ValidationRule struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
}

// Option is one entry of a fixed choice list.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one field of a form schema.
type Field struct {
	Name        string            `json:"name"`
	Kind        string            `json:"kind"`
	Type        FieldType         `json:"type"`
	Format      string            `json:"format,omitempty"`
	Required    bool              `json:"required"`
	Label       string            `json:"label,omitempty"`
	Description string            `json:"description,omitempty"`
	Default     any               `json:"default,omitempty"`
	Options     []Option          `json:"options,omitempty"`
	Nested      []Field           `json:"nested,omitempty"`
	Validations []ValidationRule  `json:"validations,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// FormModel is the description of a whole schema.
type FormModel struct {
	Name     string            `json:"name"`
	Base     string            `json:"base,omitempty"`
	Fields   []Field           `json:"fields"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Field returns the field called name.
func (m FormModel) Field(name string) (Field, bool) {
	for _, field := range m.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}
