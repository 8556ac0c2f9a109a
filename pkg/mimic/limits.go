package mimic

import "fmt"

// Limits bounds the size of the drawings a controller accepts.
type Limits struct {
	MaxElements     int   // Maximum number of bound elements
	MaxRuleLength   int   // Maximum length of one rule attribute, in bytes
	MaxDocumentSize int64 // Maximum size of the fetched SVG, in bytes
}

// DefaultLimits returns reasonable default limits
func DefaultLimits() *Limits {
	return &Limits{
		MaxElements:     10000,
		MaxRuleLength:   4096,
		MaxDocumentSize: 16 * 1024 * 1024, // 16MB
	}
}

func (l *Limits) Validate() error {
	if l.MaxElements <= 0 {
		return fmt.Errorf("max elements must be positive, got %d", l.MaxElements)
	}
	if l.MaxRuleLength <= 0 {
		return fmt.Errorf("max rule length must be positive, got %d", l.MaxRuleLength)
	}
	if l.MaxDocumentSize <= 0 {
		return fmt.Errorf("max document size must be positive, got %d", l.MaxDocumentSize)
	}
	return nil
}

func (l *Limits) checkDocument(size int) error {
	if int64(size) > l.MaxDocumentSize {
		return fmt.Errorf("%w: document is %d bytes, maximum %d", ErrLimitExceeded, size, l.MaxDocumentSize)
	}
	return nil
}

func (l *Limits) checkElements(n int) error {
	if n > l.MaxElements {
		return fmt.Errorf("%w: %d bound elements, maximum %d", ErrLimitExceeded, n, l.MaxElements)
	}
	return nil
}
