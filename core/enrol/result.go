package enrol

import "fmt"

type ErrorKind int

// Row failure kinds
const (
	KindStructural ErrorKind = iota + 1
	KindConflict
	KindReferential
	KindUnexpected
	KindCancelled
)

var kindNames = map[ErrorKind]string{
	KindStructural:  "structural",
	KindConflict:    "conflict",
	KindReferential: "referential",
	KindUnexpected:  "unexpected",
	KindCancelled:   "cancelled",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

const (
	msgUnexpected = "Unexpected error while importing row"
	msgCancelled  = "Import cancelled"
)

// RowError is the reason a row was not imported.
type RowError struct {
	Kind    ErrorKind
	Message string
}

func (e *RowError) Error() string {
	return e.Message
}

func newRowError(kind ErrorKind, format string, args ...interface{}) *RowError {
	return &RowError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

type (
	RowFailure struct {
		Row     int       `json:"row"`
		Message string    `json:"message"`
		Kind    ErrorKind `json:"-"`
	}

	BatchResult struct {
		Successful int          `json:"successful"`
		Failed     int          `json:"failed"`
		Errors     []RowFailure `json:"errors"`
	}
)

func newBatchResult() BatchResult {
	return BatchResult{Errors: make([]RowFailure, 0)}
}

func (res *BatchResult) fail(row int, rerr *RowError) {
	res.Failed++
	res.Errors = append(res.Errors, RowFailure{Row: row, Message: rerr.Message, Kind: rerr.Kind})
}

// rowNumber is the dataset row number of the row at index i; the header is row 1.
func rowNumber(i int) int {
	return i + 2
}
