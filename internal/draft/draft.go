// Package draft holds the in-memory model of a proposed visit registration:
// the visit candidates produced by interpretation, advisory warnings, and the
// local validation that gates commit.
package draft

import "fmt"

// VisitType classifies a proposed visit.
type VisitType string

const (
	VisitSitting     VisitType = "sitting"
	VisitTraining    VisitType = "training"
	VisitMeetingFree VisitType = "meeting_free"
	VisitMeetingPaid VisitType = "meeting_paid"
)

// TimeHint records whether a start time was explicitly fixed by a human
// after generation.
type TimeHint string

const (
	TimeUnspecified TimeHint = "unspecified"
	TimeFixed       TimeHint = "fixed"
)

// Field names a single editable attribute of a VisitCandidate.
type Field string

const (
	FieldStartTime Field = "start_time"
	FieldEndTime   Field = "end_time"
	FieldCourse    Field = "course"
	FieldVisitType Field = "visit_type"
	FieldMemo      Field = "memo"
)

// VisitCandidate is one proposed visit. RowNum is a stable display ordinal;
// it survives deletions and is never reused, so it is not an array index and
// not a persistence key.
type VisitCandidate struct {
	RowNum       int       `json:"row_num"`
	Date         string    `json:"date"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time,omitempty"`
	Course       string    `json:"course"`
	VisitType    VisitType `json:"visit_type"`
	Memo         string    `json:"memo"`
	TimeHint     TimeHint  `json:"time_hint"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
}

// Warning is advisory. It is rendered to the user and never blocks commit.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	RowNums []int  `json:"row_nums"`
}

// HardError blocks commit for the whole draft until resolved by editing.
type HardError struct {
	Code    string
	Message string
	RowNums []int
}

// Draft is the editable, unsaved set of proposed visits for one
// interpretation cycle. Mutating methods recompute HardErrors synchronously.
type Draft struct {
	Visits     []VisitCandidate
	Warnings   []Warning
	HardErrors []HardError
}

// New builds a draft from interpreted visits and warnings and runs the
// initial validation pass.
func New(visits []VisitCandidate, warnings []Warning) *Draft {
	d := &Draft{Visits: visits, Warnings: warnings}
	d.revalidate()
	return d
}

// Duplicate inserts a shallow copy of the visit at index directly after it.
// The copy gets a row number strictly greater than every existing one, so
// row numbers stay unique even across earlier deletions.
func (d *Draft) Duplicate(index int) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	dup := d.Visits[index]
	dup.RowNum = d.maxRowNum() + 1

	d.Visits = append(d.Visits, VisitCandidate{})
	copy(d.Visits[index+2:], d.Visits[index+1:])
	d.Visits[index+1] = dup

	d.revalidate()
	return nil
}

// Delete removes the visit at index. Surviving visits keep their row numbers.
func (d *Draft) Delete(index int) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.Visits = append(d.Visits[:index], d.Visits[index+1:]...)
	d.revalidate()
	return nil
}

// EditField mutates exactly one editable attribute of the visit at index.
// Setting the start time marks the row as explicitly fixed, which clears the
// unconfirmed-time warning marker for it.
func (d *Draft) EditField(index int, field Field, value string) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	v := &d.Visits[index]
	switch field {
	case FieldStartTime:
		v.StartTime = value
		v.TimeHint = TimeFixed
	case FieldEndTime:
		v.EndTime = value
	case FieldCourse:
		v.Course = value
	case FieldVisitType:
		v.VisitType = VisitType(value)
	case FieldMemo:
		v.Memo = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	d.revalidate()
	return nil
}

// BindCustomer writes the resolved customer id onto every visit. A draft
// addresses exactly one customer.
func (d *Draft) BindCustomer(customerID string) {
	for i := range d.Visits {
		d.Visits[i].CustomerID = customerID
	}
}

// CustomerBound reports whether every visit carries a customer id. An empty
// draft is not considered bound.
func (d *Draft) CustomerBound() bool {
	if len(d.Visits) == 0 {
		return false
	}
	for _, v := range d.Visits {
		if v.CustomerID == "" {
			return false
		}
	}
	return true
}

// FirstCustomerName returns the extracted customer name of the first visit,
// the field customer resolution watches.
func (d *Draft) FirstCustomerName() string {
	if len(d.Visits) == 0 {
		return ""
	}
	return d.Visits[0].CustomerName
}

// HasHardErrors reports whether commit is currently blocked by validation.
func (d *Draft) HasHardErrors() bool { return len(d.HardErrors) > 0 }

func (d *Draft) checkIndex(index int) error {
	if index < 0 || index >= len(d.Visits) {
		return fmt.Errorf("visit index %d out of range (have %d visits)", index, len(d.Visits))
	}
	return nil
}

func (d *Draft) maxRowNum() int {
	max := 0
	for _, v := range d.Visits {
		if v.RowNum > max {
			max = v.RowNum
		}
	}
	return max
}
