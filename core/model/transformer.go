package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/dfencode/dfencode/dataset"
)

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// FrameEncoder は型付きフレームを数値表現に変換するインターフェース。
// 出力は *dataset.Frame または *mat.Dense のいずれか（設定による）。
type FrameEncoder interface {
	// Output は学習済みの規則でフレームを変換する
	Output(df *dataset.Frame) (mat.Matrix, error)

	// EncodedColumns は学習時に固定された出力列名を返す
	EncodedColumns() ([]string, error)
}
