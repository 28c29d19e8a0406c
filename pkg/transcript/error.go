package transcript

// NotFoundError is returned when an exchange doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "exchange not found"
	}

	return "exchange not found: " + e.ID
}
