package classes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"class-service/internal/db"
	"class-service/internal/timeconv"

	"github.com/spf13/cast"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:users"`

	ID       int64   `bun:"id,pk,autoincrement" json:"id"`
	Name     *string `bun:"name,notnull" json:"name"`
	Avatar   *string `bun:"avatar,notnull" json:"avatar"`
	Whatsapp *string `bun:"whatsapp,notnull" json:"whatsapp"`
	Bio      *string `bun:"bio,notnull" json:"bio"`
}

type Class struct {
	bun.BaseModel `bun:"table:classes,alias:classes"`

	ID      int64    `bun:"id,pk,autoincrement" json:"id"`
	Subject *string  `bun:"subject,notnull" json:"subject"`
	Cost    *float64 `bun:"cost,type:decimal,notnull" json:"cost"`
	UserID  int64    `bun:"user_id,notnull" json:"user_id"`
}

// ClassSchedule is one weekly slot; From and To are minutes since midnight.
type ClassSchedule struct {
	bun.BaseModel `bun:"table:class_schedule,alias:class_schedule"`

	ID      int64 `bun:"id,pk,autoincrement" json:"id"`
	ClassID int64 `bun:"class_id,notnull" json:"class_id"`
	WeekDay *int  `bun:"week_day,type:integer,notnull" json:"week_day"`
	From    int   `bun:"from,type:integer,notnull" json:"from"`
	To      int   `bun:"to,type:integer,notnull" json:"to"`
}

// ClassListing is one row of GET /classes: a class flattened with the
// profile of the user offering it.
type ClassListing struct {
	bun.BaseModel `bun:"table:classes,alias:classes"`

	ID       int64   `bun:"id" json:"id"`
	Subject  string  `bun:"subject" json:"subject"`
	Cost     float64 `bun:"cost" json:"cost"`
	UserID   int64   `bun:"user_id" json:"user_id"`
	Name     string  `bun:"name" json:"name"`
	Avatar   string  `bun:"avatar" json:"avatar"`
	Whatsapp string  `bun:"whatsapp" json:"whatsapp"`
	Bio      string  `bun:"bio" json:"bio"`
}

// Tables lists the models in creation order.
func Tables() []db.Table {
	return []db.Table{
		{Model: (*User)(nil)},
		{
			Model:       (*Class)(nil),
			ForeignKeys: []string{`("user_id") REFERENCES "users" ("id") ON UPDATE CASCADE ON DELETE CASCADE`},
		},
		{
			Model:       (*ClassSchedule)(nil),
			ForeignKeys: []string{`("class_id") REFERENCES "classes" ("id") ON UPDATE CASCADE ON DELETE CASCADE`},
		},
	}
}

// CreateClassRequest is the body of POST /classes. Absent fields stay nil
// and are written as NULL, so the table constraints reject them.
type CreateClassRequest struct {
	Name     *string        `json:"name"`
	Avatar   *string        `json:"avatar"`
	Whatsapp *string        `json:"whatsapp"`
	Bio      *string        `json:"bio"`
	Subject  *string        `json:"subject"`
	Cost     *Number        `json:"cost"`
	Schedule []ScheduleItem `json:"schedule"`
}

type ScheduleItem struct {
	WeekDay *Number `json:"week_day"`
	From    string  `json:"from"`
	To      string  `json:"to"`
}

// ClassCreatedEvent is published once a class has been committed.
type ClassCreatedEvent struct {
	ClassID   int64     `json:"class_id"`
	UserID    int64     `json:"user_id"`
	Subject   string    `json:"subject"`
	Cost      float64   `json:"cost"`
	Slots     int       `json:"slots"`
	CreatedAt time.Time `json:"created_at"`
}

// Number is a JSON number that also accepts numeric strings ("3", "80.5").
// Blank strings, booleans and null are rejected.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: null number", ErrInvalidInput)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		*n = Number(v)
		return nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return fmt.Errorf("%w: empty number", ErrInvalidInput)
		}
		f, err := cast.ToFloat64E(s)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		*n = Number(f)
		return nil
	default:
		return fmt.Errorf("%w: %T is not a number", ErrInvalidInput, raw)
	}
}

// Int returns n as an int, rejecting fractional values.
func (n Number) Int() (int, error) {
	f := float64(n)
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidInput, f)
	}
	return int(f), nil
}

func (n Number) Float64() float64 {
	return float64(n)
}

func (n *Number) float64Ptr() *float64 {
	if n == nil {
		return nil
	}
	f := n.Float64()
	return &f
}

// stringValue reads an optional field for logs and events.
func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func float64Value(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func (r CreateClassRequest) user() *User {
	return &User{
		Name:     r.Name,
		Avatar:   r.Avatar,
		Whatsapp: r.Whatsapp,
		Bio:      r.Bio,
	}
}

func (r CreateClassRequest) class(userID int64) *Class {
	return &Class{
		Subject: r.Subject,
		Cost:    r.Cost.float64Ptr(),
		UserID:  userID,
	}
}

// toSchedules converts the request slots into rows owned by classID.
func toSchedules(classID int64, items []ScheduleItem) ([]ClassSchedule, error) {
	rows := make([]ClassSchedule, 0, len(items))
	for i, item := range items {
		from, err := timeconv.HourToMinutes(item.From)
		if err != nil {
			return nil, fmt.Errorf("schedule[%d].from: %w", i, err)
		}
		to, err := timeconv.HourToMinutes(item.To)
		if err != nil {
			return nil, fmt.Errorf("schedule[%d].to: %w", i, err)
		}
		var weekDay *int
		if item.WeekDay != nil {
			day, err := item.WeekDay.Int()
			if err != nil {
				return nil, fmt.Errorf("schedule[%d].week_day: %w", i, err)
			}
			weekDay = &day
		}
		rows = append(rows, ClassSchedule{
			ClassID: classID,
			WeekDay: weekDay,
			From:    from,
			To:      to,
		})
	}
	return rows, nil
}
