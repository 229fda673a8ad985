package model

import "time"

// Record is one published attribute value. Identifier is the device slug and
// Slug the attribute name.
type Record struct {
	Id         int64     `json:"id"`
	TimeStamp  time.Time `json:"timestamp"`
	Unit       string    `json:"unit_of_measurement"`
	Value      string    `json:"value"`
	Identifier string    `json:"identifier"`
	Slug       string    `json:"slug"`
}

type Records []Record
