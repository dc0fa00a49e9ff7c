package entities

// ValidationResult represents the outcome of checking call arguments against
// parameter schemas.
type ValidationResult struct {
	Errors []ValidationError `json:"errors,omitempty" yaml:"errors,omitempty"`
	Valid  bool              `json:"valid" yaml:"valid"`
}

// ValidationError represents a specific validation error. Field is a JSON
// pointer rooted at the argument position, such as "/0/name".
type ValidationError struct {
	Field   string `json:"field" yaml:"field"`
	Message string `json:"message" yaml:"message"`
}
