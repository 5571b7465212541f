package duties

import "time"

// Duty is the persisted duty row.
type Duty struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RAID      int64     `gorm:"column:ra_id;not null;default:0;index"`
	RAName    string    `gorm:"column:ra_name;size:190;not null;index"`
	Date      string    `gorm:"column:date;size:10;not null;index"`
	Shift     string    `gorm:"column:shift;size:16;not null"`
	Notes     string    `gorm:"column:notes;type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Duty) TableName() string {
	return "duties"
}

// Record projects the row onto the wire shape.
func (d Duty) Record() Record {
	return Record{
		ID:     DutyID(d.ID),
		RAName: d.RAName,
		Date:   d.Date,
		Shift:  Shift(d.Shift),
		Notes:  d.Notes,
	}
}

// Records projects rows onto the wire shape, preserving order.
func Records(rows []Duty) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record())
	}
	return records
}
