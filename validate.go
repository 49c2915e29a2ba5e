package dream

import "fmt"

// Validate checks universal constraints on Request.
func (r Request) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("model must not be empty: %w", ErrValidation)
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("at least one message is required: %w", ErrValidation)
	}
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	for i, m := range r.Messages {
		if err := ValidateMessage(m); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ValidateMessage checks that a message has a known role and that only
// user messages carry images.
func ValidateMessage(msg Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("unknown role %q: %w", msg.Role, ErrValidation)
	}
	if msg.HasImage() && msg.Role != RoleUser {
		return fmt.Errorf("image not allowed in %s message: %w", msg.Role, ErrValidation)
	}
	return nil
}
