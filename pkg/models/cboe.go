package models

import "time"

// CboeSecurity is a symbol listed on the CBOE weeklies list.
type CboeSecurity struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
