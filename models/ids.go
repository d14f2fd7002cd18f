package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TempIDPrefix marks locally issued placeholder identifiers. Real identifiers
// assigned by the remote store never carry this prefix.
const TempIDPrefix = "temp_"

var ErrNotTempID = errors.New("identifier is not a temporary id")

// TempID is a placeholder identifier for a record created while offline, of
// the form temp_<unix-millis>_<random-suffix>. It is superseded by a real
// identifier once the corresponding create reaches the remote store.
//
// TempIDs are issued only by the temp-id generator; other code obtains them by
// parsing persisted state via [ParseTempID].
type TempID string

func (t TempID) String() string { return string(t) }

// IssuedAt extracts the millisecond timestamp embedded in the identifier.
func (t TempID) IssuedAt() (time.Time, error) {
	parts := strings.SplitN(string(t), "_", 3)
	if len(parts) != 3 || parts[0]+"_" != TempIDPrefix {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNotTempID, string(t))
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp in %q", ErrNotTempID, string(t))
	}
	return time.UnixMilli(ms), nil
}

// IsTempID reports whether raw looks like a temporary identifier.
func IsTempID(raw string) bool {
	return strings.HasPrefix(raw, TempIDPrefix)
}

// ParseTempID validates raw as a well-formed temporary identifier.
func ParseTempID(raw string) (TempID, error) {
	t := TempID(raw)
	if _, err := t.IssuedAt(); err != nil {
		return "", err
	}
	return t, nil
}
