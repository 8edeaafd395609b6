package cut

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakugaworks/cutflow/internal/apperr"
)

// Progress sentinel values. A stage counts as done when it holds either.
const (
	StatusDone        = "済"
	StatusNotRequired = "不要"
)

// FieldKey names one field of a Record for keyed access.
type FieldKey string

const (
	FieldCutNumber FieldKey = "cutNumber"

	FieldLOIn      FieldKey = "loIn"
	FieldLOOut     FieldKey = "loOut"
	FieldGenIn     FieldKey = "genIn"
	FieldGenOut    FieldKey = "genOut"
	FieldDouga     FieldKey = "douga"
	FieldShiage    FieldKey = "shiage"
	FieldSatsuei   FieldKey = "satsuei"
	FieldKenshutsu FieldKey = "kenshutsu"

	FieldLayoutCost FieldKey = "layoutCost"
	FieldGengaCost  FieldKey = "gengaCost"
	FieldDougaCost  FieldKey = "dougaCost"
	FieldShiageCost FieldKey = "shiageCost"

	FieldLayoutStaff FieldKey = "layoutStaff"
	FieldGengaStaff  FieldKey = "gengaStaff"
	FieldDougaStaff  FieldKey = "dougaStaff"
	FieldShiageStaff FieldKey = "shiageStaff"

	FieldNote FieldKey = "note"
)

// ProgressFields enumerates the stage fields that feed the completion rate.
// Derived computations walk this list instead of reflecting over the struct.
func ProgressFields() []FieldKey {
	return []FieldKey{
		FieldLOIn, FieldLOOut, FieldGenIn, FieldGenOut,
		FieldDouga, FieldShiage, FieldSatsuei, FieldKenshutsu,
	}
}

// CostFields enumerates the fields summed into the total cost.
func CostFields() []FieldKey {
	return []FieldKey{
		FieldLayoutCost, FieldGengaCost, FieldDougaCost, FieldShiageCost,
	}
}

// Record is one production cut's full field set. The zero ID means the
// store assigns one on create. Deleted records stay in the store for
// history and undo.
type Record struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CutNumber string `gorm:"index" json:"cutNumber"`

	LOIn      string `json:"loIn"`
	LOOut     string `json:"loOut"`
	GenIn     string `json:"genIn"`
	GenOut    string `json:"genOut"`
	Douga     string `json:"douga"`
	Shiage    string `json:"shiage"`
	Satsuei   string `json:"satsuei"`
	Kenshutsu string `json:"kenshutsu"`

	LayoutCost string `json:"layoutCost"`
	GengaCost  string `json:"gengaCost"`
	DougaCost  string `json:"dougaCost"`
	ShiageCost string `json:"shiageCost"`

	LayoutStaff string `json:"layoutStaff"`
	GengaStaff  string `json:"gengaStaff"`
	DougaStaff  string `json:"dougaStaff"`
	ShiageStaff string `json:"shiageStaff"`

	Note string `json:"note"`

	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	derived derivedCache
}

// TableName sets the table used by the remote persistence mirror.
func (Record) TableName() string { return "cut_records" }

type derivedCache struct {
	valid          bool
	completionRate float64
	totalCost      float64
}

// Get returns the value of a field by key, empty for unknown keys.
func (r *Record) Get(key FieldKey) string {
	switch key {
	case FieldCutNumber:
		return r.CutNumber
	case FieldLOIn:
		return r.LOIn
	case FieldLOOut:
		return r.LOOut
	case FieldGenIn:
		return r.GenIn
	case FieldGenOut:
		return r.GenOut
	case FieldDouga:
		return r.Douga
	case FieldShiage:
		return r.Shiage
	case FieldSatsuei:
		return r.Satsuei
	case FieldKenshutsu:
		return r.Kenshutsu
	case FieldLayoutCost:
		return r.LayoutCost
	case FieldGengaCost:
		return r.GengaCost
	case FieldDougaCost:
		return r.DougaCost
	case FieldShiageCost:
		return r.ShiageCost
	case FieldLayoutStaff:
		return r.LayoutStaff
	case FieldGengaStaff:
		return r.GengaStaff
	case FieldDougaStaff:
		return r.DougaStaff
	case FieldShiageStaff:
		return r.ShiageStaff
	case FieldNote:
		return r.Note
	default:
		return ""
	}
}

// Set writes a field by key and invalidates the derived cache. Unknown keys
// are rejected so typos never silently drop a write.
func (r *Record) Set(key FieldKey, value string) error {
	switch key {
	case FieldCutNumber:
		r.CutNumber = value
	case FieldLOIn:
		r.LOIn = value
	case FieldLOOut:
		r.LOOut = value
	case FieldGenIn:
		r.GenIn = value
	case FieldGenOut:
		r.GenOut = value
	case FieldDouga:
		r.Douga = value
	case FieldShiage:
		r.Shiage = value
	case FieldSatsuei:
		r.Satsuei = value
	case FieldKenshutsu:
		r.Kenshutsu = value
	case FieldLayoutCost:
		r.LayoutCost = value
	case FieldGengaCost:
		r.GengaCost = value
	case FieldDougaCost:
		r.DougaCost = value
	case FieldShiageCost:
		r.ShiageCost = value
	case FieldLayoutStaff:
		r.LayoutStaff = value
	case FieldGengaStaff:
		r.GengaStaff = value
	case FieldDougaStaff:
		r.DougaStaff = value
	case FieldShiageStaff:
		r.ShiageStaff = value
	case FieldNote:
		r.Note = value
	default:
		return apperr.Validation("record.set", fmt.Sprintf("unknown field %q", key))
	}
	r.Invalidate()
	return nil
}

// Invalidate marks the derived cache dirty. Mutation paths call this; plain
// field reads never do.
func (r *Record) Invalidate() {
	r.derived.valid = false
}

// CompletionRate returns the percentage of progress fields that are done or
// not required, 0 when there are no progress fields. Memoized until the
// next mutation.
func (r *Record) CompletionRate() float64 {
	if !r.derived.valid {
		r.recompute()
	}
	return r.derived.completionRate
}

// TotalCost sums the cost fields, coercing each to a number with anything
// unparsable counted as zero. Memoized until the next mutation.
func (r *Record) TotalCost() float64 {
	if !r.derived.valid {
		r.recompute()
	}
	return r.derived.totalCost
}

func (r *Record) recompute() {
	fields := ProgressFields()
	done := 0
	for _, f := range fields {
		v := r.Get(f)
		if v == StatusDone || v == StatusNotRequired {
			done++
		}
	}
	rate := 0.0
	if len(fields) > 0 {
		rate = float64(done) / float64(len(fields)) * 100
	}

	total := 0.0
	for _, f := range CostFields() {
		total += coerceCost(r.Get(f))
	}

	r.derived = derivedCache{
		valid:          true,
		completionRate: rate,
		totalCost:      total,
	}
}

func coerceCost(raw string) float64 {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Validate checks required fields before the store accepts a record.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.CutNumber) == "" {
		return apperr.Validation("record.validate", "cut number must not be empty")
	}
	for _, f := range CostFields() {
		if coerceCost(r.Get(f)) < 0 {
			return apperr.Validation("record.validate", fmt.Sprintf("cost field %s must not be negative", f))
		}
	}
	return nil
}

// Clone returns a deep copy with a dirty derived cache.
func (r *Record) Clone() *Record {
	cp := *r
	cp.derived = derivedCache{}
	return &cp
}
