package models

import "time"

type SearchRecord struct {
	Query string    `json:"q"`
	At    time.Time `json:"at"`
}
