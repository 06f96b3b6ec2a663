package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/JaimeStill/gradebook/pkg/formatting"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode reads a snapshot document of at most maxBytes and validates it.
// A maxBytes of zero disables the size limit.
func Decode(r io.Reader, maxBytes int64) (*Snapshot, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: limit is %s", ErrTooLarge, formatting.FormatBytes(maxBytes, 1))
	}

	return Parse(data)
}

// Parse unmarshals and validates a snapshot document.
func Parse(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformed)
	}

	if err := Validate(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Validate checks the identity fields every downstream stage depends on.
// It never coerces values; a failing snapshot is rejected whole.
func Validate(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: empty document", ErrMalformed)
	}

	if err := validate.Struct(snap); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]FieldError, len(verrs))
			for i, fe := range verrs {
				fields[i] = FieldError{Path: fe.Namespace(), Rule: fe.Tag()}
			}
			return &ValidationError{Fields: fields}
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	m := snap.Metadata
	if m.ExpiresAt != nil && m.ExpiresAt.Before(m.FetchedAt) {
		return &ValidationError{Fields: []FieldError{
			{Path: "Snapshot.Metadata.ExpiresAt", Rule: "gtefield=FetchedAt"},
		}}
	}

	return nil
}
