package preprocessing_test

import (
	"fmt"

	"github.com/dfencode/dfencode/dataset"
	"github.com/dfencode/dfencode/pkg/errors"
	"github.com/dfencode/dfencode/pkg/log"
	"github.com/dfencode/dfencode/preprocessing"
)

func ExampleCategoricalEncoder() {
	df := dataset.MustNew(
		dataset.Floats("age", 31, 45, 28),
		dataset.Strings("color", "red", "blue", "red"),
		dataset.Bools("smoker", true, false, true),
	)

	enc := preprocessing.NewCategoricalEncoder(preprocessing.WithLogger(log.NewNopLogger()))
	if _, err := enc.Fit(df); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	out, err := enc.Transform(df)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(out.Names())
	for i := 0; i < out.NumRows(); i++ {
		fmt.Println(out.At(i, 0), out.At(i, 1), out.At(i, 2))
	}

	// Output:
	// [age color smoker]
	// 31 0 1
	// 45 1 0
	// 28 0 1
}

func ExampleCategoricalEncoder_unseenCategory() {
	enc := preprocessing.NewCategoricalEncoder(
		preprocessing.WithLogger(log.NewNopLogger()),
		preprocessing.WithWarningHandler(func(w error) {
			var unseen *errors.UnseenCategoryWarning
			if errors.As(w, &unseen) {
				fmt.Printf("warning: %q in %s -> %v\n", unseen.Value, unseen.Column, unseen.MappedTo)
			}
		}),
	)
	fit := dataset.MustNew(dataset.Strings("status", "active", "inactive", "active"))
	if _, err := enc.Fit(fit); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	m, err := enc.TransformMatrix(dataset.MustNew(dataset.Strings("status", "inactive", "pending")))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(m.At(0, 0), m.At(1, 0))

	// Output:
	// warning: "pending" in status -> 0
	// 1 0
}

func ExampleCategoricalEncoder_EncodedColumns() {
	df := dataset.MustNew(
		dataset.Strings("color", "red", "blue", "red", "green"),
		dataset.Categories("status", "active", "inactive", "active", "active"),
	)
	enc := preprocessing.NewCategoricalEncoder(preprocessing.WithLogger(log.NewNopLogger()))
	if _, err := enc.Fit(df); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	cols, _ := enc.EncodedColumns()
	fmt.Println(cols)

	// Output:
	// [color_red color_blue color_green status]
}
