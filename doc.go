// Package dfencode converts the categorical columns of tabular data into a
// purely numeric representation for machine learning pipelines in Go.
//
// A categorical column (Text, Category or Boolean) with exactly two distinct
// values is coded as a single 0/1 column. Every other categorical column is
// expanded into one indicator column per category seen at Fit. Numeric
// columns pass through untouched, and the output column layout is frozen at
// Fit so that every later Transform produces the same columns in the same
// order.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/dfencode/dfencode/dataset"
//	    "github.com/dfencode/dfencode/preprocessing"
//	)
//
//	func main() {
//	    df := dataset.MustNew(
//	        dataset.Floats("age", 31, 45, 28),
//	        dataset.Strings("color", "red", "blue", "green"),
//	        dataset.Bools("smoker", true, false, true),
//	    )
//
//	    enc := preprocessing.NewCategoricalEncoder()
//	    if _, err := enc.Fit(df); err != nil {
//	        log.Fatal(err)
//	    }
//	    out, err := enc.Transform(df)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(out.Names()) // [age color_red color_blue color_green smoker]
//	}
//
// # Packages
//
//   - dataset: typed column-oriented frames and CSV I/O
//   - preprocessing: CategoricalEncoder, scalers and Pipeline
//   - report: category counts and bar charts of encoded frames
//   - adapter/golearn: conversion to golearn DenseInstances
//   - config: YAML configuration of the dfencode command
//   - core/model: transformer lifecycle and interfaces
//   - core/parallel: parallel processing utilities
//   - pkg/errors: structured errors and warnings
//   - pkg/log: structured logging
//
// # Performance
//
// Indicator columns of frames with more than 1000 rows are filled in
// parallel when the encoder is built with WithNJobs. Transform is safe for
// concurrent use.
package dfencode
