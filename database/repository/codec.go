package repository

import (
	"fmt"

	"tourbook/database/docstore"

	"github.com/mitchellh/mapstructure"
)

// Collection names.
const (
	ToursCollection    = "tours"
	BookingsCollection = "bookings"
	ReviewsCollection  = "reviews"
)

// Decode copies a store document into out (a pointer to a model struct),
// matching fields by their json tag. Numeric widths are converted as needed.
func Decode(doc docstore.Document, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to build document decoder: %w", err)
	}
	if err := dec.Decode(map[string]interface{}(doc)); err != nil {
		return fmt.Errorf("%w: %v: %w", docstore.ErrMalformed, doc[docstore.FieldID], err)
	}
	return nil
}
