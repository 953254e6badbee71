// Package errors はモジュール全体のエラーハンドリングと警告の仕組みを提供します。
// すべてのエラーは github.com/cockroachdb/errors でスタックトレースを付与して生成され、
// 構造化ログ向けに zerolog のオブジェクトとしても出力できます。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("ftrl-warning: %v\n", w)
	}
	// pkg/log が初期化時に設定する（循環importを避けるため）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定します。
// zerolog の警告関数が設定されている場合はそちらが優先されます。
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ConvergenceWarning は学習が収束しなかった（損失が改善しなかった）場合の警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で Predict などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("ftrl: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0: rows, 1: features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("ftrl: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError はハイパーパラメータなど入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ftrl: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切な場合のエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("ftrl: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ===========================================================================
//
//	スパース入力・FTRL 特有のエラー型
//
// ===========================================================================

// FeatureIndexError は特徴量インデックスが num_features 以上（または負）の場合のエラーです。
// 状態へのアクセス前に検出されます。
type FeatureIndexError struct {
	Op          string
	Index       int
	NumFeatures int
	Row         int // 行番号（単一サンプルの場合は 0）
}

func (e *FeatureIndexError) Error() string {
	return fmt.Sprintf("ftrl: %s: feature index out of range: row %d has index %d, num_features is %d",
		e.Op, e.Row, e.Index, e.NumFeatures)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FeatureIndexError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("index", e.Index).
		Int("num_features", e.NumFeatures).
		Int("row", e.Row).
		Str("type", "FeatureIndexError")
}

// NewFeatureIndexError は新しいFeatureIndexErrorを作成し、スタックトレースを付与します。
func NewFeatureIndexError(op string, index, numFeatures, row int) error {
	return errors.WithStack(&FeatureIndexError{Op: op, Index: index, NumFeatures: numFeatures, Row: row})
}

// CSRStructureError はCSR行列の構造が壊れている場合のエラーです。
// indptr の単調性、長さ、columns/data の長さ不一致などを示します。
type CSRStructureError struct {
	Op     string
	Reason string
}

func (e *CSRStructureError) Error() string {
	return fmt.Sprintf("ftrl: %s: malformed CSR matrix: %s", e.Op, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *CSRStructureError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Str("type", "CSRStructureError")
}

// NewCSRStructureError は新しいCSRStructureErrorを作成し、スタックトレースを付与します。
func NewCSRStructureError(op, format string, args ...interface{}) error {
	return errors.WithStack(&CSRStructureError{Op: op, Reason: fmt.Sprintf(format, args...)})
}

// InvalidLabelError は分類で {0,1} 以外のラベル、または非有限のラベルが渡された場合のエラーです。
type InvalidLabelError struct {
	Op    string
	Label float64
	Row   int
}

func (e *InvalidLabelError) Error() string {
	return fmt.Sprintf("ftrl: %s: invalid label %v at row %d", e.Op, e.Label, e.Row)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidLabelError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Float64("label", e.Label).
		Int("row", e.Row).
		Str("type", "InvalidLabelError")
}

// NewInvalidLabelError は新しいInvalidLabelErrorを作成し、スタックトレースを付与します。
func NewInvalidLabelError(op string, label float64, row int) error {
	return errors.WithStack(&InvalidLabelError{Op: op, Label: label, Row: row})
}

// PersistenceKind はモデルの保存・読み込みエラーの種類です。
type PersistenceKind string

const (
	// KindOpen はファイルを開けない（作成できない）ことを示します。
	KindOpen PersistenceKind = "open"
	// KindRead はレイアウトが要求するバイト数を読めなかったことを示します。
	KindRead PersistenceKind = "read"
	// KindWrite は書き込みに失敗したことを示します。
	KindWrite PersistenceKind = "write"
	// KindFormat は読めたが内容が不正（負の特徴量数、未知のモデル種別など）であることを示します。
	KindFormat PersistenceKind = "format"
)

// PersistenceError はモデルの保存・読み込みに失敗した場合のエラーです。
type PersistenceError struct {
	Op   string
	Kind PersistenceKind
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	msg := fmt.Sprintf("ftrl: %s: %s failed", e.Op, e.Kind)
	if e.Path != "" {
		msg += fmt.Sprintf(" for %q", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PersistenceError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("kind", string(e.Kind)).
		Str("path", e.Path).
		Str("type", "PersistenceError")
}

// NewPersistenceError は新しいPersistenceErrorを作成し、スタックトレースを付与します。
func NewPersistenceError(op string, kind PersistenceKind, path string, err error) error {
	return errors.WithStack(&PersistenceError{Op: op, Kind: kind, Path: path, Err: err})
}

// IsPersistenceKind はエラーチェーンに指定された種類のPersistenceErrorが含まれるかを返します。
func IsPersistenceKind(err error, kind PersistenceKind) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Kind == kind
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrModelReleased は Release 後のモデルを操作した場合のエラーです。
	ErrModelReleased = New("model has been released")
)
